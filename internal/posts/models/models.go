package models

import (
	"strings"
	"time"

	id "kitmatch/pkg/domain"
	dErrors "kitmatch/pkg/domain-errors"
)

// PostType tags the kind of organisation running a reference post.
type PostType string

const (
	PostTypeUBS         PostType = "UBS"
	PostTypeCRAS        PostType = "CRAS"
	PostTypeAssociation PostType = "ASSOCIACAO"
	PostTypeNGO         PostType = "ONG"
	PostTypeOther       PostType = "OUTRO"
)

func ParsePostType(s string) (PostType, error) {
	t := PostType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case PostTypeUBS, PostTypeCRAS, PostTypeAssociation, PostTypeNGO, PostTypeOther:
		return t, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown post type: "+s)
}

// Post is a reference post where kits are dropped off and collected.
type Post struct {
	ID                   id.PostID
	Name                 string
	Type                 PostType
	Address              string
	City                 string
	NeighborhoodCoverage string
	Phone                string
	ContactName          string
	OpeningHours         string
	CanReceiveDonations  bool
	Public               bool
	CreatedAt            time.Time
}

// AcceptsDonations reports whether donors and receivers may register here.
func (p *Post) AcceptsDonations() bool {
	return p.CanReceiveDonations
}

// Listed reports whether the post shows up in the public catalogue.
func (p *Post) Listed() bool {
	return p.Public && p.CanReceiveDonations
}

// DisplayName is "<name> - <city>", the label used in messages.
func (p *Post) DisplayName() string {
	if p.City == "" {
		return p.Name
	}
	return p.Name + " - " + p.City
}
