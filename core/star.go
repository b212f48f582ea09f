package core

import (
	"encoding/hex"

	"github.com/shopspring/decimal"
)

// MaxStoryBytes bounds the hex-encoded story persisted on the ledger.
const MaxStoryBytes = 500

// Star is the item an address registers.
type Star struct {
	RA            string           `json:"ra"`
	Dec           string           `json:"dec"`
	Magnitude     *decimal.Decimal `json:"mag,omitempty"`
	Constellation string           `json:"cen,omitempty"`
	Story         string           `json:"story"`
}

// Submission is the payload forwarded to the ledger once a grant is confirmed.
type Submission struct {
	Address string `json:"address"`
	Star    *Star  `json:"star"`
}

// EncodeStory returns the storage form of a story.
func EncodeStory(story string) string {
	return hex.EncodeToString([]byte(story))
}

// DecodeStory reverses EncodeStory.
func DecodeStory(encoded string) (string, error) {
	b, err := hex.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckEncodedStory enforces the persisted story bound.
func CheckEncodedStory(encoded string) error {
	if len(encoded) > MaxStoryBytes {
		return ErrStoryTooLong
	}
	return nil
}

// Normalize validates the submission and returns a copy whose story is in storage form.
func (s Submission) Normalize() (Submission, error) {
	if s.Address == "" {
		return Submission{}, ErrMissingAddress
	}
	if s.Star == nil {
		return Submission{}, ErrMissingStar
	}
	if s.Star.RA == "" {
		return Submission{}, ErrMissingRA
	}
	if s.Star.Dec == "" {
		return Submission{}, ErrMissingDec
	}
	if s.Star.Story == "" {
		return Submission{}, ErrMissingStory
	}

	star := *s.Star
	star.Story = EncodeStory(star.Story)
	if err := CheckEncodedStory(star.Story); err != nil {
		return Submission{}, err
	}
	return Submission{Address: s.Address, Star: &star}, nil
}
