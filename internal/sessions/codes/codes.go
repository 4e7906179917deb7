// Package codes issues and verifies the six digit START/END service codes.
package codes

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	sessionserrors "petsit/internal/sessions/errors"
	"petsit/pkg/model"

	"github.com/google/uuid"
)

const Digits = 6

var codeSpace = big.NewInt(1_000_000)

// Sealer protects codes at rest.
type Sealer interface {
	Seal(plaintext, associated string) (string, error)
	Open(sealed, associated string) (string, error)
}

type Issuer struct {
	sealer   Sealer
	validity time.Duration
	now      func() time.Time
}

// NewIssuer returns an Issuer whose codes expire validity after the session's
// scheduled start.
func NewIssuer(sealer Sealer, validity time.Duration) *Issuer {
	return &Issuer{sealer: sealer, validity: validity, now: time.Now}
}

// Issue creates one START and one END code for the session.
func (i *Issuer) Issue(session *model.Session) ([]*model.ServiceCode, error) {
	now := i.now().UTC()
	expiresAt := session.ScheduledAt.Add(i.validity)

	codes := make([]*model.ServiceCode, 0, 2)
	for _, codeType := range []string{model.CodeTypeStart, model.CodeTypeEnd} {
		plain, err := Generate()
		if err != nil {
			return nil, err
		}

		sealed, err := i.sealer.Seal(plain, associatedData(session.ID, codeType))
		if err != nil {
			return nil, fmt.Errorf("failed to seal %s code: %w", codeType, err)
		}

		codes = append(codes, &model.ServiceCode{
			ID:        uuid.NewString(),
			SessionID: session.ID,
			Type:      codeType,
			Sealed:    sealed,
			Plain:     plain,
			ExpiresAt: &expiresAt,
			CreatedAt: now,
		})
	}
	return codes, nil
}

// Reveal fills in Plain from the sealed value.
func (i *Issuer) Reveal(code *model.ServiceCode) error {
	plain, err := i.sealer.Open(code.Sealed, associatedData(code.SessionID, code.Type))
	if err != nil {
		return err
	}
	code.Plain = plain
	return nil
}

// Verify compares presented against the stored code in constant time.
func (i *Issuer) Verify(code *model.ServiceCode, presented string) error {
	plain, err := i.sealer.Open(code.Sealed, associatedData(code.SessionID, code.Type))
	if err != nil {
		return fmt.Errorf("failed to open service code: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(plain), []byte(presented)) != 1 {
		return sessionserrors.Code(sessionserrors.ReasonCodeMismatch)
	}
	return nil
}

// Generate returns a uniformly random zero-padded six digit code.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", Digits, n.Int64()), nil
}

func associatedData(sessionID, codeType string) string {
	return sessionID + ":" + codeType
}
