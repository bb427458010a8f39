package profile

import (
	"encoding/json"
	"fmt"

	"github.com/klipach/cozycurated/contract"
	"github.com/klipach/cozycurated/store"
)

type Mode int

const (
	ModeLoading Mode = iota
	ModeEditing
	ModeViewing
	ModeSaving
)

func (m Mode) String() string {
	switch m {
	case ModeLoading:
		return "loading"
	case ModeEditing:
		return "editing"
	case ModeViewing:
		return "viewing"
	case ModeSaving:
		return "saving"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// MarshalJSON renders the mode by name for the event stream.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// State is a point-in-time copy of one profile session.
type State struct {
	Mode    Mode
	Profile *contract.UserProfile
	// Fields are the values the edit form shows. Remote updates never touch
	// them while the session is editing or saving.
	Fields        contract.ProfileRequest
	Email         string
	DisplayName   string
	PhotoURL      string
	SaveSuccess   bool
	RemoteChanged bool
	Err           string
}

func (s State) clone() State {
	if s.Profile != nil {
		p := *s.Profile
		s.Profile = &p
	}
	return s
}

func (s State) Response() contract.ProfileResponse {
	return contract.ProfileResponse{
		Mode:          s.Mode.String(),
		Profile:       s.Profile,
		Fields:        s.Fields,
		Email:         s.Email,
		PhotoURL:      s.PhotoURL,
		SaveSuccess:   s.SaveSuccess,
		RemoteChanged: s.RemoteChanged,
		Error:         s.Err,
	}
}

// fieldsFrom fills the edit form from a stored record, falling back to the
// auth display name when the record has no name.
func fieldsFrom(p *contract.UserProfile, displayName string) contract.ProfileRequest {
	if p == nil {
		return contract.ProfileRequest{Name: displayName}
	}
	fields := contract.ProfileRequest{Name: p.Name, Role: p.Role, Bio: p.Bio}
	if fields.Name == "" {
		fields.Name = displayName
	}
	return fields
}

func decodeProfile(snap store.Snapshot) (*contract.UserProfile, error) {
	if !snap.Exists {
		return nil, nil
	}
	var p contract.UserProfile
	if err := snap.Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding profile at %s: %w", snap.Path, err)
	}
	return &p, nil
}

func sameProfile(a, b *contract.UserProfile) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
