package session

import (
	"sync"

	"github.com/nazir74680/Tumor-segmeantation/internal/models"
)

const (
	LoginPath     = "/login"
	AdminPath     = "/admin"
	DashboardPath = "/dashboard"
)

type Navigator interface {
	Navigate(path string)
}

type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) {
	f(path)
}

// Recorder keeps the latest navigation target until it is taken.
type Recorder struct {
	mu      sync.Mutex
	pending string
}

func (r *Recorder) Navigate(path string) {
	r.mu.Lock()
	r.pending = path
	r.mu.Unlock()
}

func (r *Recorder) Take() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.pending
	r.pending = ""
	return p
}

func (r *Recorder) Peek() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

// LandingPath is the view a freshly logged in user is sent to.
func LandingPath(role models.UserRole) string {
	if role == models.UserRoleAdmin {
		return AdminPath
	}
	return DashboardPath
}
