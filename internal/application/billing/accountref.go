package billing

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bilim-app/bilim/internal/domain/user"
)

// AccountRef is the normalized account reference extracted from a provider
// payload. Providers disagree on the field name and type (numeric user_id,
// string user_id, order_id), so everything is folded into this one shape
// before touching the ledger.
type AccountRef struct {
	UserID  uint
	OrderID string
}

// ParseAccountRef normalizes the account object of a provider payload.
// It accepts user_id as a JSON number or numeric string, and falls back to
// order_id when no user reference is present.
func ParseAccountRef(account map[string]interface{}) (AccountRef, error) {
	if len(account) == 0 {
		return AccountRef{}, fmt.Errorf("account is empty")
	}

	var ref AccountRef

	if raw, ok := account["user_id"]; ok {
		id, err := coerceUserID(raw)
		if err != nil {
			return AccountRef{}, err
		}
		ref.UserID = id
	}

	if raw, ok := account["order_id"]; ok {
		s, ok := raw.(string)
		if !ok {
			return AccountRef{}, fmt.Errorf("order_id must be a string")
		}
		ref.OrderID = strings.TrimSpace(s)
	}

	if ref.UserID == 0 && ref.OrderID == "" {
		return AccountRef{}, fmt.Errorf("account carries neither user_id nor order_id")
	}

	return ref, nil
}

func coerceUserID(raw interface{}) (uint, error) {
	switch v := raw.(type) {
	case float64:
		if v <= 0 || v != float64(uint(v)) {
			return 0, fmt.Errorf("invalid user_id: %v", raw)
		}
		return uint(v), nil
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil || n == 0 {
			return 0, fmt.Errorf("invalid user_id: %q", v)
		}
		return uint(n), nil
	default:
		return 0, fmt.Errorf("user_id must be a number or numeric string")
	}
}

// AccountResolver resolves a normalized account reference to an existing,
// active user. Gateways use it to reject payments against unknown accounts
// before any ledger row is created.
type AccountResolver interface {
	ResolveAccount(ctx context.Context, ref AccountRef) (*user.User, error)
}
