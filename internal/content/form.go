package content

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aniketverma/jarvis-portfolio/internal/models"
)

// FormStatus is the state of the contact form as shown to the visitor.
type FormStatus int

const (
	FormIdle FormStatus = iota
	FormLoading
	FormSuccess
	FormError
)

func (s FormStatus) String() string {
	switch s {
	case FormIdle:
		return "idle"
	case FormLoading:
		return "loading"
	case FormSuccess:
		return "success"
	case FormError:
		return "error"
	}
	return "unknown"
}

// DefaultResetDelay is how long a success stays visible before the form returns to idle.
const DefaultResetDelay = 5 * time.Second

// ErrBusy is returned by Submit while a submission is in flight.
var ErrBusy = errors.New("submission already in progress")

// Submitter delivers a contact-form submission.
type Submitter interface {
	SubmitServiceQuery(ctx context.Context, q models.ServiceQuery) (models.ServiceQuery, error)
}

// Form drives one contact form: idle, then loading while a submission is in flight, then success or
// error. Success falls back to idle after the reset delay; error stays until the next submission.
type Form struct {
	submitter  Submitter
	resetDelay time.Duration
	onChange   func(FormStatus)

	mu     sync.Mutex
	status FormStatus
	err    error
	gen    int
	timer  *time.Timer
}

// FormOption customizes a Form.
type FormOption func(*Form)

// WithResetDelay overrides DefaultResetDelay.
func WithResetDelay(d time.Duration) FormOption {
	return func(f *Form) {
		f.resetDelay = d
	}
}

// WithStatusChange registers a callback invoked after every status transition.
func WithStatusChange(fn func(FormStatus)) FormOption {
	return func(f *Form) {
		f.onChange = fn
	}
}

// NewForm creates an idle form delivering through s.
func NewForm(s Submitter, opts ...FormOption) *Form {
	f := &Form{
		submitter:  s,
		resetDelay: DefaultResetDelay,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Submit validates and delivers q, blocking until the outcome is known. It returns ErrBusy without
// touching the state when another submission is still loading.
func (f *Form) Submit(ctx context.Context, q models.ServiceQuery) error {
	f.mu.Lock()
	if f.status == FormLoading {
		f.mu.Unlock()
		return ErrBusy
	}
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.gen++
	gen := f.gen
	f.status = FormLoading
	f.err = nil
	f.mu.Unlock()
	f.changed(FormLoading)

	err := q.Validate()
	if err == nil {
		_, err = f.submitter.SubmitServiceQuery(ctx, q)
	}

	f.mu.Lock()
	if err != nil {
		f.status = FormError
		f.err = err
	} else {
		f.status = FormSuccess
		f.timer = time.AfterFunc(f.resetDelay, func() { f.expire(gen) })
	}
	status := f.status
	f.mu.Unlock()
	f.changed(status)

	return err
}

func (f *Form) expire(gen int) {
	f.mu.Lock()
	if f.gen != gen || f.status != FormSuccess {
		f.mu.Unlock()
		return
	}
	f.status = FormIdle
	f.timer = nil
	f.mu.Unlock()
	f.changed(FormIdle)
}

func (f *Form) changed(s FormStatus) {
	if f.onChange != nil {
		f.onChange(s)
	}
}

// Status returns the current state.
func (f *Form) Status() FormStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Err returns the failure of the last submission while the form is in FormError.
func (f *Form) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
