// Package cipher models one vault entry in both its encrypted wire shape
// and its decrypted, display-ready projection.
package cipher

import "time"

// Kind identifies which of the four entry variants a cipher carries.
type Kind string

const (
	KindLogin      Kind = "login"
	KindCard       Kind = "card"
	KindIdentity   Kind = "identity"
	KindSecureNote Kind = "secure_note"
)

// FieldType mirrors Bitwarden's custom-field type enum. It is preserved
// as-is through the encrypted -> decrypted path and serialized as one
// of the literal strings below.
type FieldType int

const (
	FieldText FieldType = iota
	FieldHidden
	FieldBoolean
	FieldLinked
)

// String renders the literal JSON form used on the wire.
func (t FieldType) String() string {
	switch t {
	case FieldText:
		return "text"
	case FieldHidden:
		return "hidden"
	case FieldBoolean:
		return "boolean"
	case FieldLinked:
		return "linked"
	default:
		return "text"
	}
}

// MarshalJSON implements json.Marshaler using the literal string form.
func (t FieldType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON accepts any of the four literal spellings.
func (t *FieldType) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case `"text"`:
		*t = FieldText
	case `"hidden"`:
		*t = FieldHidden
	case `"boolean"`:
		*t = FieldBoolean
	case `"linked"`:
		*t = FieldLinked
	default:
		*t = FieldText
	}
	return nil
}

// MatchType controls how a stored URI is compared against a query URL.
// None is never stored explicitly; the matcher treats an absent
// match type as Domain.
type MatchType int

const (
	MatchDomain MatchType = iota
	MatchHost
	MatchStartsWith
	MatchExact
	MatchRegularExpression
	MatchNever
)

// EncryptedURI is one stored URI slot, ciphertext plus its match policy.
type EncryptedURI struct {
	URI       string     `json:"uri"`
	MatchType *MatchType `json:"match,omitempty"`
}

// DecryptedURI is the plaintext counterpart used by the URI matcher (C3).
type DecryptedURI struct {
	URI       string
	MatchType MatchType
}

// EffectiveMatchType returns the match type to apply, treating an absent
// stored value as Domain per §3 of the spec.
func (u DecryptedURI) EffectiveMatchType() MatchType {
	return u.MatchType
}

// EncryptedField is one custom field slot; only Type is plaintext.
type EncryptedField struct {
	Name  *string   `json:"name,omitempty"`
	Value *string   `json:"value,omitempty"`
	Type  FieldType `json:"type"`
}

// DecryptedField is the plaintext counterpart.
type DecryptedField struct {
	Name  *string
	Value *string
	Type  FieldType
}

// HistoryEntry records one previous password for an entry.
type HistoryEntry struct {
	LastUsedDate time.Time `json:"last_used_date"`
	Password     string    `json:"password"`
}

// EncryptedHistoryEntry is the ciphertext form stored on an EncryptedEntry.
type EncryptedHistoryEntry struct {
	LastUsedDate time.Time `json:"last_used_date"`
	Password     string    `json:"password"`
}

// EncryptedLoginData is the Login variant payload, still ciphertext.
type EncryptedLoginData struct {
	Username *string        `json:"username,omitempty"`
	Password *string        `json:"password,omitempty"`
	TOTP     *string        `json:"totp,omitempty"`
	URIs     []EncryptedURI `json:"uris,omitempty"`
}

// EncryptedCardData is the Card variant payload.
type EncryptedCardData struct {
	CardholderName *string `json:"cardholder_name,omitempty"`
	Number         *string `json:"number,omitempty"`
	Brand          *string `json:"brand,omitempty"`
	ExpMonth       *string `json:"exp_month,omitempty"`
	ExpYear        *string `json:"exp_year,omitempty"`
	Code           *string `json:"code,omitempty"`
}

// EncryptedIdentityData is the Identity variant payload.
type EncryptedIdentityData struct {
	Title          *string `json:"title,omitempty"`
	FirstName      *string `json:"first_name,omitempty"`
	MiddleName     *string `json:"middle_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`
	Address1       *string `json:"address1,omitempty"`
	Address2       *string `json:"address2,omitempty"`
	Address3       *string `json:"address3,omitempty"`
	City           *string `json:"city,omitempty"`
	State          *string `json:"state,omitempty"`
	PostalCode     *string `json:"postal_code,omitempty"`
	Country        *string `json:"country,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Email          *string `json:"email,omitempty"`
	SSN            *string `json:"ssn,omitempty"`
	LicenseNumber  *string `json:"license_number,omitempty"`
	PassportNumber *string `json:"passport_number,omitempty"`
	Username       *string `json:"username,omitempty"`
}

// EncryptedEntry is one vault row as produced by the external Db collaborator.
type EncryptedEntry struct {
	ID       string
	OrgID    *string
	Folder   *string
	FolderID *string
	Name     string
	Kind     Kind

	Login    *EncryptedLoginData
	Card     *EncryptedCardData
	Identity *EncryptedIdentityData

	Fields  []EncryptedField
	Notes   *string
	History []EncryptedHistoryEntry
	Key     *string
}

// LoginData is the decrypted Login variant payload.
type LoginData struct {
	Username *string        `json:"username,omitempty"`
	Password *string        `json:"password,omitempty"`
	TOTP     *string        `json:"totp,omitempty"`
	URIs     []DecryptedURI `json:"uris,omitempty"`
}

// CardData is the decrypted Card variant payload.
type CardData struct {
	CardholderName *string `json:"cardholder_name,omitempty"`
	Number         *string `json:"number,omitempty"`
	Brand          *string `json:"brand,omitempty"`
	ExpMonth       *string `json:"exp_month,omitempty"`
	ExpYear        *string `json:"exp_year,omitempty"`
	Code           *string `json:"code,omitempty"`
}

// IdentityData is the decrypted Identity variant payload.
type IdentityData struct {
	Title          *string `json:"title,omitempty"`
	FirstName      *string `json:"first_name,omitempty"`
	MiddleName     *string `json:"middle_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`
	Address1       *string `json:"address1,omitempty"`
	Address2       *string `json:"address2,omitempty"`
	Address3       *string `json:"address3,omitempty"`
	City           *string `json:"city,omitempty"`
	State          *string `json:"state,omitempty"`
	PostalCode     *string `json:"postal_code,omitempty"`
	Country        *string `json:"country,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Email          *string `json:"email,omitempty"`
	SSN            *string `json:"ssn,omitempty"`
	LicenseNumber  *string `json:"license_number,omitempty"`
	PassportNumber *string `json:"passport_number,omitempty"`
	Username       *string `json:"username,omitempty"`
}

// DecryptedCipher is the user-visible projection of one EncryptedEntry.
// It is produced fresh for each CLI invocation and never persisted.
type DecryptedCipher struct {
	ID       string          `json:"id"`
	Folder   *string         `json:"folder,omitempty"`
	Name     string          `json:"name"`
	Kind     Kind            `json:"-"`
	Login    *LoginData      `json:"-"`
	Card     *CardData       `json:"-"`
	Identity *IdentityData   `json:"-"`
	Fields   []DecryptedField `json:"fields,omitempty"`
	Notes    *string         `json:"notes,omitempty"`
	History  []HistoryEntry  `json:"history,omitempty"`
}

// DisplayName is "<username>@<name>" for a Login with a username, else
// just the entry name. Used in resolver ambiguity messages and in the
// list/search output.
func (c *DecryptedCipher) DisplayName() string {
	if c.Kind == KindLogin && c.Login != nil && c.Login.Username != nil && *c.Login.Username != "" {
		return *c.Login.Username + "@" + c.Name
	}
	return c.Name
}
