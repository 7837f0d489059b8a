// Package nav defines the page-routing contract shared by the auth guard and
// the page controllers.
package nav

import (
	"net/url"
	"strconv"
	"sync"
	"time"
)

// Fixed page targets.
const (
	Login          = "login.html"
	Register       = "register.html"
	Dashboard      = "dashboard.html"
	Index          = "index.html"
	AdminDashboard = "admin/dashboard.html"
)

// VerifyPending is the page offering to resend the verification email.
func VerifyPending(email string) string {
	return "verify-pending.html?email=" + url.QueryEscape(email)
}

// WeeklyContent links a dashboard card to its week.
func WeeklyContent(week int) string {
	return "weekly_content.html?week=" + strconv.Itoa(week)
}

// RegisterAs opens registration with the role prefilled.
func RegisterAs(role string) string {
	if role == "" {
		return Register
	}
	return Register + "?role=" + url.QueryEscape(role)
}

// Navigator performs a client-side navigation once after has elapsed.
type Navigator interface {
	Navigate(target string, after time.Duration)
}

// Visit is one recorded navigation.
type Visit struct {
	Target string
	After  time.Duration
}

// Recorder is a Navigator that only records visits.
type Recorder struct {
	mu     sync.Mutex
	visits []Visit
}

func (r *Recorder) Navigate(target string, after time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visits = append(r.visits, Visit{Target: target, After: after})
}

// Visits returns a copy of the recorded visits.
func (r *Recorder) Visits() []Visit {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Visit, len(r.visits))
	copy(out, r.visits)
	return out
}

// Last returns the most recent visit, if any.
func (r *Recorder) Last() (Visit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.visits) == 0 {
		return Visit{}, false
	}
	return r.visits[len(r.visits)-1], true
}
