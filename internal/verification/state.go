// Package verification drives a publisher through proving ownership of a
// website: choose a method, follow its instructions, and land on a success,
// ownership-transferred or failed state.
package verification

import "guestpost/internal/models"

// State is one step of the workflow. The concrete types are the only states.
type State interface {
	Name() string
	isState()
}

// Select is the method picker.
type Select struct{}

// Verify is in progress for Method. Instructions are set for html_file and
// AuthURL for the Google methods.
type Verify struct {
	Method      models.VerificationMethod
	FileName    string
	FileContent string
	Code        string
	AuthURL     string
}

// Success means the server accepted the proof or queued the request.
type Success struct {
	Website *models.Website
}

// OwnershipTransferred means the domain was taken over from another account.
type OwnershipTransferred struct {
	Website *models.Website
}

// Failed is reached when the OAuth return leg reports an error.
type Failed struct {
	Message string
}

func (Select) Name() string               { return "select" }
func (Verify) Name() string               { return "verify" }
func (Success) Name() string              { return "success" }
func (OwnershipTransferred) Name() string { return "ownershipTransferred" }
func (Failed) Name() string               { return "verificationError" }

func (Select) isState()               {}
func (Verify) isState()               {}
func (Success) isState()              {}
func (OwnershipTransferred) isState() {}
func (Failed) isState()               {}

// IsTerminal reports whether s ends the workflow.
func IsTerminal(s State) bool {
	switch s.(type) {
	case Success, OwnershipTransferred:
		return true
	}
	return false
}
