package models

import "time"

// TaskStatus is the board column a task belongs to.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "inProgress"
	StatusDone       TaskStatus = "done"
)

// TaskStatuses lists the board columns in display order.
var TaskStatuses = []TaskStatus{StatusTodo, StatusInProgress, StatusDone}

// Valid reports whether s is one of the known board columns.
func (s TaskStatus) Valid() bool {
	for _, known := range TaskStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// DateLayout is the wire and storage format of task due dates.
const DateLayout = "2006-01-02"

// User is a directory entry. The password hash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PublicUser is the subset of User returned by the auth and admin APIs.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// Public strips everything but the publicly visible fields.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}
}

// UserUpdate carries a partial user update; nil fields are left untouched.
type UserUpdate struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	IsAdmin  *bool   `json:"isAdmin"`
}

// Project groups tasks and tracks an overall completion percentage.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Progress  int       `json:"progress"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Task is a single card on the board. ProjectID is a soft reference.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	DueDate     string     `json:"dueDate"`
	ProjectID   string     `json:"projectId"`
	Documents   []Document `json:"documents"`
	Position    int64      `json:"position"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Document is a file attached to a task. URL is resolved from BlobKey on read.
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	TaskID      string    `json:"taskId,omitempty"`
	BlobKey     string    `json:"-"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// FileEntry is the files page row: a document with its task and project names.
type FileEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	TaskID      string `json:"taskId"`
	TaskName    string `json:"taskName"`
	ProjectID   string `json:"projectId"`
	ProjectName string `json:"projectName"`
	UploadDate  string `json:"uploadDate"`
}

// Profile holds the settings page fields of a user.
type Profile struct {
	UserID         string    `json:"-"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	SlackName      string    `json:"slackName"`
	LinkedinURL    string    `json:"linkedinUrl"`
	GithubURL      string    `json:"githubUrl"`
	ProfilePicture string    `json:"profilePicture"`
	PictureKey     string    `json:"-"`
	Bio            string    `json:"bio"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ProfileUpdate carries a partial profile update.
type ProfileUpdate struct {
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"lastName"`
	Email          *string `json:"email"`
	SlackName      *string `json:"slackName"`
	LinkedinURL    *string `json:"linkedinUrl"`
	GithubURL      *string `json:"githubUrl"`
	ProfilePicture *string `json:"profilePicture"`
	Bio            *string `json:"bio"`
}

// Apply merges the non-nil fields of u into p. Setting ProfilePicture directly
// detaches any uploaded picture.
func (u ProfileUpdate) Apply(p *Profile) {
	if u.ProfilePicture != nil {
		p.PictureKey = ""
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.FirstName, u.FirstName)
	set(&p.LastName, u.LastName)
	set(&p.Email, u.Email)
	set(&p.SlackName, u.SlackName)
	set(&p.LinkedinURL, u.LinkedinURL)
	set(&p.GithubURL, u.GithubURL)
	set(&p.ProfilePicture, u.ProfilePicture)
	set(&p.Bio, u.Bio)
}
