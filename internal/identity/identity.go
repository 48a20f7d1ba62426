// Package identity issues the anonymous session ids used as roster keys.
package identity

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const MaxNameRunes = 24

type Identity struct {
	ID string
}

// Short is the id prefix shown after display names.
func (i Identity) Short() string {
	if len(i.ID) <= 4 {
		return i.ID
	}
	return i.ID[:4]
}

type Provider interface {
	SignIn(ctx context.Context) (Identity, error)
}

// Anonymous hands out a fresh random id per sign-in.
type Anonymous struct{}

func (Anonymous) SignIn(ctx context.Context) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return Identity{}, fmt.Errorf("identity: %w", err)
	}
	return Identity{ID: id.String()}, nil
}

// Fixed returns the same id every time, for resumed sessions and tests.
type Fixed string

func (f Fixed) SignIn(ctx context.Context) (Identity, error) {
	if _, err := uuid.Parse(string(f)); err != nil {
		return Identity{}, fmt.Errorf("identity: bad session id %q: %w", string(f), err)
	}
	return Identity{ID: string(f)}, nil
}

// NormalizeName applies NFKC, drops control characters, collapses spaces
// and caps the length.
func NormalizeName(s string) string {
	s = norm.NFKC.String(s)
	var b strings.Builder
	space := false
	n := 0
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsControl(r) {
			continue
		}
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if n >= MaxNameRunes {
			break
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
			n++
			if n >= MaxNameRunes {
				break
			}
		}
		space = false
		b.WriteRune(r)
		n++
	}
	return b.String()
}

// DisplayName is the normalized name suffixed with the short id.
func DisplayName(name string, id Identity) string {
	name = NormalizeName(name)
	if name == "" {
		name = "Player"
	}
	if id.ID == "" {
		return name
	}
	return name + "#" + id.Short()
}
