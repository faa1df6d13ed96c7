package authstore

import (
	"encoding/json"
	"time"

	"github.com/apifest/authstore/storage"
)

// Record field names, following the original storage layout. The
// domain identifier is renamed to the store's primary-key field on
// encode when present, and omitted entirely when absent so the store
// assigns one.
const (
	fieldSecret        = "secret"
	fieldName          = "name"
	fieldURI           = "uri"
	fieldDescription   = "descr"
	fieldScope         = "scope"
	fieldStatus        = "status"
	fieldCreated       = "created"
	fieldCode          = "code"
	fieldClientID      = "clientId"
	fieldRedirectURI   = "redirectUri"
	fieldType          = "type"
	fieldValid         = "valid"
	fieldToken         = "token"
	fieldRefreshToken  = "refreshToken"
	fieldExpiresIn     = "expiresIn"
	fieldDetails       = "details"
	fieldCCExpiresIn   = "ccExpiresIn"
	fieldPassExpiresIn = "passExpiresIn"
)

func encodeClient(c *ClientCredentials) storage.Record {
	rec := storage.Record{
		fieldSecret:      c.Secret,
		fieldName:        c.Name,
		fieldURI:         c.URI,
		fieldDescription: c.Description,
		fieldScope:       c.Scope,
		fieldStatus:      int64(c.Status),
		fieldCreated:     c.CreatedAt.UnixMilli(),
	}
	if c.ID != "" {
		rec[storage.IDField] = c.ID
	}
	return rec
}

func decodeClient(rec storage.Record) *ClientCredentials {
	return &ClientCredentials{
		ID:          asString(rec[storage.IDField]),
		Secret:      asString(rec[fieldSecret]),
		Name:        asString(rec[fieldName]),
		URI:         asString(rec[fieldURI]),
		Description: asString(rec[fieldDescription]),
		Scope:       asString(rec[fieldScope]),
		Status:      int(asInt64(rec[fieldStatus])),
		CreatedAt:   asTime(rec[fieldCreated]),
	}
}

func encodeAuthCode(a *AuthCode) storage.Record {
	rec := storage.Record{
		fieldCode:        a.Code,
		fieldClientID:    a.ClientID,
		fieldRedirectURI: a.RedirectURI,
		fieldScope:       a.Scope,
		fieldType:        a.Type,
		fieldValid:       a.Valid,
		fieldCreated:     a.CreatedAt.UnixMilli(),
	}
	if a.ID != "" {
		rec[storage.IDField] = a.ID
	}
	return rec
}

func decodeAuthCode(rec storage.Record) *AuthCode {
	return &AuthCode{
		ID:          asString(rec[storage.IDField]),
		Code:        asString(rec[fieldCode]),
		ClientID:    asString(rec[fieldClientID]),
		RedirectURI: asString(rec[fieldRedirectURI]),
		Scope:       asString(rec[fieldScope]),
		Type:        asString(rec[fieldType]),
		Valid:       asBool(rec[fieldValid]),
		CreatedAt:   asTime(rec[fieldCreated]),
	}
}

// encodeAccessToken never sets the primary-key field: access tokens
// carry no domain identifier, so the store assigns the surrogate id.
func encodeAccessToken(t *AccessToken) storage.Record {
	return storage.Record{
		fieldToken:        t.Token,
		fieldRefreshToken: t.RefreshToken,
		fieldClientID:     t.ClientID,
		fieldScope:        t.Scope,
		fieldType:         t.Type,
		fieldExpiresIn:    t.ExpiresIn,
		fieldDetails:      t.Details,
		fieldValid:        t.Valid,
		fieldCreated:      t.CreatedAt.UnixMilli(),
	}
}

func decodeAccessToken(rec storage.Record) *AccessToken {
	return &AccessToken{
		Token:        asString(rec[fieldToken]),
		RefreshToken: asString(rec[fieldRefreshToken]),
		ClientID:     asString(rec[fieldClientID]),
		Scope:        asString(rec[fieldScope]),
		Type:         asString(rec[fieldType]),
		ExpiresIn:    asString(rec[fieldExpiresIn]),
		Details:      flattenDetails(rec[fieldDetails]),
		Valid:        asBool(rec[fieldValid]),
		CreatedAt:    asTime(rec[fieldCreated]),
	}
}

func encodeScope(s *Scope) storage.Record {
	return storage.Record{
		storage.IDField:    s.Name,
		fieldDescription:   s.Description,
		fieldCCExpiresIn:   int64(s.CCExpiresIn),
		fieldPassExpiresIn: int64(s.PassExpiresIn),
	}
}

func decodeScope(rec storage.Record) *Scope {
	return &Scope{
		Name:          asString(rec[storage.IDField]),
		Description:   asString(rec[fieldDescription]),
		CCExpiresIn:   int(asInt64(rec[fieldCCExpiresIn])),
		PassExpiresIn: int(asInt64(rec[fieldPassExpiresIn])),
	}
}

// flattenDetails normalizes the auxiliary details payload to a flat
// string. Some backends round-trip it as a JSON list; entity fields
// are scalar, so a list is re-serialized to its JSON text.
func flattenDetails(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case string:
		return d
	default:
		raw, err := json.Marshal(d)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

// Decode helpers tolerant of the scalar encodings the backends
// produce: JSON numbers arrive as float64, BSON as int32/int64.

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	default:
		return 0
	}
}

func asTime(v any) time.Time {
	millis := asInt64(v)
	if millis == 0 {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}
