package entities

import "fmt"

// Polarity is a person's vote on a review
type Polarity int

const (
	VoteDislike Polarity = -1
	VoteNone    Polarity = 0
	VoteLike    Polarity = 1
)

// Validate checks that p is one of the three supported polarities
func (p Polarity) Validate() error {
	switch p {
	case VoteDislike, VoteNone, VoteLike:
		return nil
	}
	return fmt.Errorf("invalid vote polarity %d", int(p))
}

func (p Polarity) String() string {
	switch p {
	case VoteLike:
		return "like"
	case VoteDislike:
		return "dislike"
	case VoteNone:
		return "none"
	}
	return fmt.Sprintf("polarity(%d)", int(p))
}
