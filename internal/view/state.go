package view

import "errors"

// Mode is the page a managed list is showing.
type Mode int

const (
	Browsing Mode = iota
	Detail
)

func (m Mode) String() string {
	if m == Detail {
		return "detail"
	}
	return "browsing"
}

// Modal is a transient dialog drawn over either mode.
type Modal string

const (
	ModalNone   Modal = ""
	ModalAdd    Modal = "add"
	ModalEdit   Modal = "edit"
	ModalDelete Modal = "delete"
)

// ErrInvalidTransition is returned for moves the state machine does not allow.
var ErrInvalidTransition = errors.New("invalid view transition")

// ListState tracks a managed list of devices or templates. The zero value is
// browsing with no modal open.
type ListState struct {
	mode   Mode
	focus  string
	modal  Modal
	target string
}

// Mode returns the current mode.
func (s *ListState) Mode() Mode { return s.mode }

// Focus returns the record shown in Detail mode.
func (s *ListState) Focus() string { return s.focus }

// Modal returns the open modal and the record it targets.
func (s *ListState) Modal() (Modal, string) { return s.modal, s.target }

// Activate opens the detail view of id.
func (s *ListState) Activate(id string) error {
	if s.mode != Browsing || s.modal != ModalNone || id == "" {
		return ErrInvalidTransition
	}
	s.mode = Detail
	s.focus = id
	return nil
}

// Back returns from the detail view to the list.
func (s *ListState) Back() error {
	if s.mode != Detail || s.modal != ModalNone {
		return ErrInvalidTransition
	}
	s.mode = Browsing
	s.focus = ""
	return nil
}

// OpenModal overlays a modal targeting id on the current mode.
func (s *ListState) OpenModal(kind Modal, id string) error {
	if kind == ModalNone || s.modal != ModalNone {
		return ErrInvalidTransition
	}
	s.modal = kind
	s.target = id
	return nil
}

// CloseModal dismisses the open modal. The underlying mode is unchanged.
func (s *ListState) CloseModal() {
	s.modal = ModalNone
	s.target = ""
}

// Forget is called after target was deleted. A detail view of a deleted
// record falls back to the list.
func (s *ListState) Forget(removed ...string) {
	for _, id := range removed {
		if s.mode == Detail && s.focus == id {
			s.mode = Browsing
			s.focus = ""
		}
	}
}
