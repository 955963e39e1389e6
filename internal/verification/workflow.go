package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"guestpost/internal/apiclient"
	"guestpost/internal/clientstate"
	"guestpost/internal/models"
)

var (
	ErrMethodDisabled = errors.New("this verification method is disabled for the website")
	ErrNoMethod       = errors.New("choose a verification method first")
	ErrReasonRequired = errors.New("please explain how you can prove ownership")
	ErrBusy           = errors.New("a verification request is already in progress")
	ErrNotTerminal    = errors.New("verification has not finished")
	ErrWrongStep      = errors.New("that action is not available at this step")
	ErrNoWebsite      = errors.New("no website is being verified")
)

// API is the part of the REST client the workflow calls.
type API interface {
	InitiateVerification(ctx context.Context, id uint, method models.VerificationMethod) (*apiclient.Response[apiclient.Instructions], error)
	Verify(ctx context.Context, id uint, in apiclient.VerifyRequest) (*apiclient.Response[apiclient.VerifyResult], error)
}

// MethodOption is one entry of the method picker.
type MethodOption struct {
	Method   models.VerificationMethod
	Label    string
	Disabled bool
	Reason   string
}

var methodLabels = map[models.VerificationMethod]string{
	models.MethodGoogleAnalytics:     "Google Analytics",
	models.MethodGoogleSearchConsole: "Google Search Console",
	models.MethodHTMLFile:            "HTML file upload",
	models.MethodAnotherMethod:       "Another method",
}

// Label returns the display name of m.
func Label(m models.VerificationMethod) string {
	if l, ok := methodLabels[m]; ok {
		return l
	}
	return string(m)
}

// Workflow is the verification state machine for one website. Calls are
// single-flight: a second call while a request is outstanding gets ErrBusy.
type Workflow struct {
	api   API
	store clientstate.Store

	mu        sync.Mutex
	busy      bool
	website   *models.Website
	websiteID uint
	selected  models.VerificationMethod
	state     State
	errMsg    string
}

// NewWorkflow starts at Select. website may be nil on the OAuth return leg.
func NewWorkflow(api API, store clientstate.Store, website *models.Website) *Workflow {
	if store == nil {
		store = clientstate.NewMemoryStore()
	}
	w := &Workflow{api: api, store: store, website: website, state: Select{}}
	if website != nil {
		w.websiteID = website.ID
	}
	return w
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Err is the message of the last failure, or "" after a successful step.
func (w *Workflow) Err() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errMsg
}

func (w *Workflow) Selected() models.VerificationMethod {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selected
}

func (w *Workflow) WebsiteID() uint {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.websiteID
}

// Options lists every method with its availability for the website.
func (w *Workflow) Options() []MethodOption {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]MethodOption, 0, len(models.VerificationMethods))
	for _, m := range models.VerificationMethods {
		opt := MethodOption{Method: m, Label: Label(m)}
		if reason := w.disabledReason(m); reason != "" {
			opt.Disabled = true
			opt.Reason = reason
		}
		out = append(out, opt)
	}
	return out
}

// CanStartVerification is false for approved websites; they go straight to Continue.
func (w *Workflow) CanStartVerification() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.approved()
}

// Choose selects a method without touching the network.
func (w *Workflow) Choose(method models.VerificationMethod) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.busy {
		return ErrBusy
	}
	if !method.IsValid() {
		return w.fail(fmt.Errorf("unknown verification method %q", method))
	}
	if w.disabledReason(method) != "" {
		return w.fail(ErrMethodDisabled)
	}
	w.selected = method
	w.state = Select{}
	w.errMsg = ""
	return nil
}

// Start begins the chosen method. html_file and the Google methods ask the
// server for instructions; another_method only moves to Verify.
func (w *Workflow) Start(ctx context.Context) error {
	method, id, err := w.begin(func() error {
		if _, ok := w.state.(Select); !ok {
			return ErrWrongStep
		}
		if w.selected == "" {
			return ErrNoMethod
		}
		if w.disabledReason(w.selected) != "" {
			return ErrMethodDisabled
		}
		if w.websiteID == 0 {
			return ErrNoWebsite
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer w.end()

	// The Google redirect leaves the process; keep the id for the return leg.
	if err := w.store.Save(id); err != nil {
		return w.failLocked(fmt.Errorf("remember website: %w", err))
	}

	if method == models.MethodAnotherMethod {
		w.transition(Verify{Method: method})
		return nil
	}

	res, err := w.api.InitiateVerification(ctx, id, method)
	if err != nil {
		return w.failLocked(err)
	}

	next := Verify{
		Method:      method,
		FileName:    res.Data.FileName,
		FileContent: res.Data.FileContent,
		Code:        res.Data.VerificationCode,
		AuthURL:     res.Data.GoogleAuthURL,
	}
	if method.IsGoogle() && next.AuthURL == "" {
		return w.failLocked(&apiclient.APIError{Message: "The server did not return a Google sign-in link"})
	}
	w.transition(next)
	return nil
}

// ConfirmHTMLFile asks the server to fetch the uploaded file.
func (w *Workflow) ConfirmHTMLFile(ctx context.Context) error {
	_, id, err := w.begin(func() error {
		v, ok := w.state.(Verify)
		if !ok || v.Method != models.MethodHTMLFile {
			return ErrWrongStep
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer w.end()

	res, err := w.api.Verify(ctx, id, apiclient.VerifyRequest{})
	if err != nil {
		return w.failLocked(err)
	}
	w.finish(res.Data, true)
	return nil
}

// SubmitReason sends a manual-review request. An empty reason never reaches the server.
func (w *Workflow) SubmitReason(ctx context.Context, reason string) error {
	reason = strings.TrimSpace(reason)
	_, id, err := w.begin(func() error {
		v, ok := w.state.(Verify)
		if !ok || v.Method != models.MethodAnotherMethod {
			return ErrWrongStep
		}
		if reason == "" {
			return ErrReasonRequired
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer w.end()

	if _, err := w.api.InitiateVerification(ctx, id, models.MethodAnotherMethod); err != nil {
		return w.failLocked(err)
	}
	res, err := w.api.Verify(ctx, id, apiclient.VerifyRequest{Reason: reason})
	if err != nil {
		return w.failLocked(err)
	}
	w.finish(res.Data, false)
	return nil
}

// CompleteOAuth finishes a Google method with the tokens from the return leg.
func (w *Workflow) CompleteOAuth(ctx context.Context, leg ReturnLeg) error {
	if leg.Error != "" {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.busy {
			return ErrBusy
		}
		w.state = Failed{Message: leg.Error}
		w.errMsg = leg.Error
		return nil
	}

	_, id, err := w.begin(func() error {
		if !leg.Method.IsGoogle() || leg.Tokens == nil {
			return ErrWrongStep
		}
		if leg.WebsiteID != 0 {
			w.websiteID = leg.WebsiteID
		}
		if w.websiteID == 0 {
			if stored, ok, _ := w.store.Load(); ok {
				w.websiteID = stored
			}
		}
		if w.websiteID == 0 {
			return ErrNoWebsite
		}
		w.selected = leg.Method
		w.state = Verify{Method: leg.Method}
		return nil
	})
	if err != nil {
		return err
	}
	defer w.end()

	res, err := w.api.Verify(ctx, id, apiclient.VerifyRequest{GoogleTokens: leg.Tokens})
	if err != nil {
		return w.failLocked(err)
	}
	w.finish(res.Data, true)
	return nil
}

// Retry returns a failed or in-progress workflow to the method picker.
func (w *Workflow) Retry() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return ErrBusy
	}
	if IsTerminal(w.state) {
		return ErrWrongStep
	}
	w.state = Select{}
	w.errMsg = ""
	return nil
}

// Continue hands the website id to the pricing step. It falls back to the
// store when the in-memory id was lost across a redirect.
func (w *Workflow) Continue() (uint, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, selecting := w.state.(Select)
	if !IsTerminal(w.state) && !(selecting && w.approved()) {
		return 0, ErrNotTerminal
	}
	if w.websiteID != 0 {
		return w.websiteID, nil
	}
	id, ok, err := w.store.Load()
	if err != nil {
		return 0, fmt.Errorf("load website: %w", err)
	}
	if !ok {
		return 0, ErrNoWebsite
	}
	w.websiteID = id
	return id, nil
}

// begin runs check under the lock and marks the workflow busy when it passes.
func (w *Workflow) begin(check func() error) (models.VerificationMethod, uint, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return "", 0, ErrBusy
	}
	if err := check(); err != nil {
		return "", 0, w.fail(err)
	}
	w.busy = true
	w.errMsg = ""
	return w.selected, w.websiteID, nil
}

func (w *Workflow) end() {
	w.mu.Lock()
	w.busy = false
	w.mu.Unlock()
}

func (w *Workflow) transition(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *Workflow) finish(res apiclient.VerifyResult, canTransfer bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if res.Website != nil {
		w.website = res.Website
	}
	if canTransfer && res.OwnershipTransferred {
		w.state = OwnershipTransferred{Website: res.Website}
		return
	}
	w.state = Success{Website: res.Website}
}

// fail records err for display; the caller holds mu.
func (w *Workflow) fail(err error) error {
	w.errMsg = apiclient.FormatError(err)
	return err
}

// failLocked records err while the workflow is busy. State is left as is.
func (w *Workflow) failLocked(err error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fail(err)
}

func (w *Workflow) approved() bool {
	return w.website != nil && w.website.Status == models.WebsiteStatusApproved
}

func (w *Workflow) disabledReason(m models.VerificationMethod) string {
	if w.website == nil {
		return ""
	}
	if w.approved() {
		return "The website is already approved"
	}
	if w.website.MethodDisabled(m) {
		return "This method has been disabled by an administrator"
	}
	return ""
}
