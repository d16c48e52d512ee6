package cipher

import "fmt"

// Project walks one EncryptedEntry and returns its DecryptedCipher, or an
// error when a structurally-required decryption fails: the entry name,
// a required field of `fields`, or any history password (spec.md §4.2).
//
// Folder is always decrypted with the user key (entryKey=nil, orgID=nil)
// per the invariant in spec.md §3 that folders are never organization
// scoped. Every other field uses entry.Key if present, else the entry's
// OrgID, else falls back to the user key — mirrored here by passing
// entry.Key/entry.OrgID straight through to the Decryptor, which owns
// the actual key-selection precedence.
func Project(d Decryptor, entry EncryptedEntry) (*DecryptedCipher, error) {
	name, err := decryptRequired(d, "name", entry.Name, entry.Key, entry.OrgID)
	if err != nil {
		return nil, fmt.Errorf("couldn't decrypt entry %s: %w", entry.ID, err)
	}

	out := &DecryptedCipher{
		ID:     entry.ID,
		Name:   name,
		Kind:   entry.Kind,
		Folder: decryptField(d, "folder", entry.Folder, nil, nil),
		Notes:  decryptField(d, "notes", entry.Notes, entry.Key, entry.OrgID),
	}

	fields, err := projectFields(d, entry)
	if err != nil {
		return nil, err
	}
	out.Fields = fields

	history, err := projectHistory(d, entry)
	if err != nil {
		return nil, err
	}
	out.History = history

	switch entry.Kind {
	case KindLogin:
		out.Login = projectLogin(d, entry)
	case KindCard:
		out.Card = projectCard(d, entry)
	case KindIdentity:
		out.Identity = projectIdentity(d, entry)
	case KindSecureNote:
		// no variant-specific payload
	}

	return out, nil
}

func projectFields(d Decryptor, entry EncryptedEntry) ([]DecryptedField, error) {
	if len(entry.Fields) == 0 {
		return nil, nil
	}
	out := make([]DecryptedField, len(entry.Fields))
	for i, f := range entry.Fields {
		var name *string
		if f.Name != nil {
			n, err := decryptRequired(d, "field name", *f.Name, entry.Key, entry.OrgID)
			if err != nil {
				return nil, fmt.Errorf("couldn't decrypt entry %s: %w", entry.ID, err)
			}
			name = &n
		}
		value, err := decryptRequiredPtr(d, "field value", f.Value, entry.Key, entry.OrgID)
		if err != nil {
			return nil, fmt.Errorf("couldn't decrypt entry %s: %w", entry.ID, err)
		}
		out[i] = DecryptedField{
			Name:  name,
			Value: value,
			Type:  f.Type,
		}
	}
	return out, nil
}

func projectHistory(d Decryptor, entry EncryptedEntry) ([]HistoryEntry, error) {
	if len(entry.History) == 0 {
		return nil, nil
	}
	out := make([]HistoryEntry, len(entry.History))
	for i, h := range entry.History {
		pw, err := decryptRequired(d, "history password", h.Password, entry.Key, entry.OrgID)
		if err != nil {
			return nil, fmt.Errorf("couldn't decrypt entry %s: %w", entry.ID, err)
		}
		out[i] = HistoryEntry{LastUsedDate: h.LastUsedDate, Password: pw}
	}
	return out, nil
}

func projectLogin(d Decryptor, entry EncryptedEntry) *LoginData {
	src := entry.Login
	if src == nil {
		return &LoginData{}
	}
	out := &LoginData{
		Username: decryptField(d, "username", src.Username, entry.Key, entry.OrgID),
		Password: decryptField(d, "password", src.Password, entry.Key, entry.OrgID),
		TOTP:     decryptField(d, "totp", src.TOTP, entry.Key, entry.OrgID),
	}
	if len(src.URIs) > 0 {
		out.URIs = make([]DecryptedURI, 0, len(src.URIs))
		for _, u := range src.URIs {
			pt := decryptField(d, "uri", &u.URI, entry.Key, entry.OrgID)
			if pt == nil {
				continue
			}
			mt := MatchDomain
			if u.MatchType != nil {
				mt = *u.MatchType
			}
			out.URIs = append(out.URIs, DecryptedURI{URI: *pt, MatchType: mt})
		}
	}
	return out
}

func projectCard(d Decryptor, entry EncryptedEntry) *CardData {
	src := entry.Card
	if src == nil {
		return &CardData{}
	}
	return &CardData{
		CardholderName: decryptField(d, "cardholder name", src.CardholderName, entry.Key, entry.OrgID),
		Number:         decryptField(d, "number", src.Number, entry.Key, entry.OrgID),
		Brand:          decryptField(d, "brand", src.Brand, entry.Key, entry.OrgID),
		ExpMonth:       decryptField(d, "exp month", src.ExpMonth, entry.Key, entry.OrgID),
		ExpYear:        decryptField(d, "exp year", src.ExpYear, entry.Key, entry.OrgID),
		Code:           decryptField(d, "code", src.Code, entry.Key, entry.OrgID),
	}
}

func projectIdentity(d Decryptor, entry EncryptedEntry) *IdentityData {
	src := entry.Identity
	if src == nil {
		return &IdentityData{}
	}
	k, o := entry.Key, entry.OrgID
	return &IdentityData{
		Title:          decryptField(d, "title", src.Title, k, o),
		FirstName:      decryptField(d, "first name", src.FirstName, k, o),
		MiddleName:     decryptField(d, "middle name", src.MiddleName, k, o),
		LastName:       decryptField(d, "last name", src.LastName, k, o),
		Address1:       decryptField(d, "address1", src.Address1, k, o),
		Address2:       decryptField(d, "address2", src.Address2, k, o),
		Address3:       decryptField(d, "address3", src.Address3, k, o),
		City:           decryptField(d, "city", src.City, k, o),
		State:          decryptField(d, "state", src.State, k, o),
		PostalCode:     decryptField(d, "postal code", src.PostalCode, k, o),
		Country:        decryptField(d, "country", src.Country, k, o),
		Phone:          decryptField(d, "phone", src.Phone, k, o),
		Email:          decryptField(d, "email", src.Email, k, o),
		SSN:            decryptField(d, "ssn", src.SSN, k, o),
		LicenseNumber:  decryptField(d, "license number", src.LicenseNumber, k, o),
		PassportNumber: decryptField(d, "passport number", src.PassportNumber, k, o),
		Username:       decryptField(d, "username", src.Username, k, o),
	}
}
