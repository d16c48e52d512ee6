// Package display implements the C7 display router: the short/long/
// field/json projections over a decrypted cipher, and the
// clipboard-or-stdout sink every value write goes through.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rbw-cli/rbw/internal/cipher"
	"github.com/rbw-cli/rbw/internal/rlog"
	"github.com/rbw-cli/rbw/internal/totp"
)

// Sink is the clipboard-or-stdout destination a value write goes
// through, grounded on spec.md §4.7's val_display_or_store. Clipboard
// is the external collaborator (internal/clipboard's atotto/clipboard
// wrapper, or the agent's clipboard_store over the socket).
type Sink interface {
	Store(text string) error
}

// Router renders DecryptedCipher projections to out, routing through
// sink when toClipboard is set. ErrOut receives the "had no <kind>"
// style diagnostics; when it is nil, os.Stderr is used. Command
// wrappers always set it to stderr.
type Router struct {
	Out         io.Writer
	ErrOut      io.Writer
	Sink        Sink
	ToClipboard bool
}

// Emit is the exported form of val_display_or_store, used directly by
// callers (like the code command) that compute a bare value outside
// any of the Short/Long/Field/JSON projections.
func (r *Router) Emit(text string) bool {
	return r.emit(text)
}

// emit implements val_display_or_store: on failure it logs to stderr
// and reports false; otherwise it writes text and reports true.
func (r *Router) emit(text string) bool {
	if r.ToClipboard {
		if err := r.Sink.Store(text); err != nil {
			rlog.Logger().Error("couldn't write to clipboard", "err", err)
			return false
		}
		return true
	}
	fmt.Fprintln(r.Out, text)
	return true
}

// Short prints the primary field for c's variant. desc is the
// user-facing needle description used in the "had no <kind>"
// diagnostic. Returns false if nothing was displayed.
func (r *Router) Short(c *cipher.DecryptedCipher, desc string) bool {
	val, kind, ok := primary(c)
	if !ok || val == "" {
		fmt.Fprintf(r.errOut(), "entry for '%s' had no %s\n", desc, kind)
		return false
	}
	return r.emit(val)
}

func (r *Router) errOut() io.Writer {
	if r.ErrOut != nil {
		return r.ErrOut
	}
	return os.Stderr
}

func primary(c *cipher.DecryptedCipher) (value string, kind string, ok bool) {
	switch c.Kind {
	case cipher.KindLogin:
		if c.Login != nil && c.Login.Password != nil {
			return *c.Login.Password, "password", true
		}
		return "", "password", false
	case cipher.KindCard:
		if c.Card != nil && c.Card.Number != nil {
			return *c.Card.Number, "number", true
		}
		return "", "number", false
	case cipher.KindIdentity:
		if c.Identity == nil {
			return "", "name", false
		}
		parts := nonEmpty(c.Identity.Title, c.Identity.FirstName, c.Identity.MiddleName, c.Identity.LastName)
		if len(parts) == 0 {
			return "", "name", false
		}
		return strings.Join(parts, " "), "name", true
	case cipher.KindSecureNote:
		if c.Notes != nil && *c.Notes != "" {
			return *c.Notes, "notes", true
		}
		return "", "notes", false
	default:
		return "", "value", false
	}
}

func nonEmpty(ps ...*string) []string {
	var out []string
	for _, p := range ps {
		if p != nil && *p != "" {
			out = append(out, *p)
		}
	}
	return out
}

// Long prints Short, then every populated secondary field as
// "<Label>: <value>" lines, then (if notes are present and something
// was already printed) a blank line followed by the notes body.
func (r *Router) Long(c *cipher.DecryptedCipher, desc string) bool {
	any := r.Short(c, desc)

	for _, line := range secondaryLines(c) {
		r.emit(line)
		any = true
	}

	if c.Notes != nil && *c.Notes != "" {
		if any {
			fmt.Fprintln(r.Out)
		}
		fmt.Fprintln(r.Out, *c.Notes)
		any = true
	}

	return any
}

func secondaryLines(c *cipher.DecryptedCipher) []string {
	var lines []string
	label := func(name, value string) {
		if value != "" {
			lines = append(lines, name+": "+value)
		}
	}

	switch c.Kind {
	case cipher.KindLogin:
		if c.Login != nil {
			if c.Login.Username != nil {
				label("Username", *c.Login.Username)
			}
			if c.Login.TOTP != nil {
				label("TOTP Secret", *c.Login.TOTP)
			}
			for _, u := range c.Login.URIs {
				lines = append(lines, fmt.Sprintf("URI: %s", u.URI))
				lines = append(lines, fmt.Sprintf("Match type: %s", matchTypeLabel(u.MatchType)))
			}
		}
		for _, f := range c.Fields {
			if f.Name != nil && f.Value != nil {
				label(*f.Name, *f.Value)
			}
		}
	case cipher.KindCard:
		if c.Card != nil {
			if c.Card.ExpMonth != nil && c.Card.ExpYear != nil {
				label("Expiration", *c.Card.ExpMonth+"/"+*c.Card.ExpYear)
			}
			if c.Card.Code != nil {
				label("CVV", *c.Card.Code)
			}
			if c.Card.CardholderName != nil {
				label("Name", *c.Card.CardholderName)
			}
			if c.Card.Brand != nil {
				label("Brand", *c.Card.Brand)
			}
		}
	case cipher.KindIdentity:
		if id := c.Identity; id != nil {
			label("Address1", derefOr(id.Address1, ""))
			label("Address2", derefOr(id.Address2, ""))
			label("Address3", derefOr(id.Address3, ""))
			label("City", derefOr(id.City, ""))
			label("State", derefOr(id.State, ""))
			label("Postal Code", derefOr(id.PostalCode, ""))
			label("Country", derefOr(id.Country, ""))
			label("Phone", derefOr(id.Phone, ""))
			label("Email", derefOr(id.Email, ""))
			label("SSN", derefOr(id.SSN, ""))
			label("License Number", derefOr(id.LicenseNumber, ""))
			label("Passport Number", derefOr(id.PassportNumber, ""))
			label("Username", derefOr(id.Username, ""))
		}
	}
	return lines
}

func matchTypeLabel(m cipher.MatchType) string {
	switch m {
	case cipher.MatchHost:
		return "host"
	case cipher.MatchStartsWith:
		return "starts with"
	case cipher.MatchExact:
		return "exact"
	case cipher.MatchRegularExpression:
		return "regular expression"
	case cipher.MatchNever:
		return "never"
	default:
		return "domain"
	}
}

func derefOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

// Field resolves name against the fixed per-variant keyword set
// (case-insensitive); on no match it falls back to a case-insensitive
// substring match against custom field names.
func (r *Router) Field(c *cipher.DecryptedCipher, name string, desc string) bool {
	val, ok := r.fieldValue(c, strings.ToLower(name))
	if !ok {
		for _, f := range c.Fields {
			if f.Name == nil || f.Value == nil {
				continue
			}
			if strings.Contains(strings.ToLower(*f.Name), strings.ToLower(name)) {
				return r.emit(*f.Value)
			}
		}
		fmt.Fprintf(r.errOut(), "entry for '%s' has no such field '%s'\n", desc, name)
		return false
	}
	return r.emit(val)
}

func (r *Router) fieldValue(c *cipher.DecryptedCipher, key string) (string, bool) {
	switch c.Kind {
	case cipher.KindLogin:
		return r.loginField(c, key)
	case cipher.KindCard:
		return r.cardField(c, key)
	case cipher.KindIdentity:
		return r.identityField(c, key)
	case cipher.KindSecureNote:
		if key == "note" || key == "notes" {
			if c.Notes != nil {
				return *c.Notes, true
			}
			return "", false
		}
	}
	return "", false
}

func (r *Router) loginField(c *cipher.DecryptedCipher, key string) (string, bool) {
	switch key {
	case "notes":
		if c.Notes != nil {
			return *c.Notes, true
		}
	case "username", "user":
		if c.Login != nil && c.Login.Username != nil {
			return *c.Login.Username, true
		}
	case "totp", "code":
		if c.Login == nil || c.Login.TOTP == nil {
			return "", false
		}
		params, err := totp.Parse(*c.Login.TOTP)
		if err != nil {
			rlog.Logger().Error("couldn't parse totp secret", "err", err)
			return "", false
		}
		code, err := totp.Now(params)
		if err != nil {
			rlog.Logger().Error("couldn't generate totp code", "err", err)
			return "", false
		}
		return code, true
	case "uris", "urls", "sites":
		if c.Login == nil || len(c.Login.URIs) == 0 {
			return "", false
		}
		parts := make([]string, len(c.Login.URIs))
		for i, u := range c.Login.URIs {
			parts[i] = u.URI
		}
		return strings.Join(parts, "\n"), true
	case "password":
		if c.Login != nil && c.Login.Password != nil {
			return *c.Login.Password, true
		}
	}
	return "", false
}

func (r *Router) cardField(c *cipher.DecryptedCipher, key string) (string, bool) {
	if c.Card == nil {
		if key == "notes" && c.Notes != nil {
			return *c.Notes, true
		}
		return "", false
	}
	switch key {
	case "number", "card":
		if c.Card.Number != nil {
			return *c.Card.Number, true
		}
	case "exp":
		if c.Card.ExpMonth != nil && c.Card.ExpYear != nil {
			return *c.Card.ExpMonth + "/" + *c.Card.ExpYear, true
		}
	case "exp_month", "month":
		if c.Card.ExpMonth != nil {
			return *c.Card.ExpMonth, true
		}
	case "exp_year", "year":
		if c.Card.ExpYear != nil {
			return *c.Card.ExpYear, true
		}
	case "cvv":
		if c.Card.Code != nil {
			return *c.Card.Code, true
		}
	case "name", "cardholder":
		if c.Card.CardholderName != nil {
			return *c.Card.CardholderName, true
		}
	case "brand", "type":
		if c.Card.Brand != nil {
			return *c.Card.Brand, true
		}
	case "notes":
		if c.Notes != nil {
			return *c.Notes, true
		}
	}
	return "", false
}

func (r *Router) identityField(c *cipher.DecryptedCipher, key string) (string, bool) {
	id := c.Identity
	switch key {
	case "name":
		if id == nil {
			return "", false
		}
		parts := nonEmpty(id.Title, id.FirstName, id.MiddleName, id.LastName)
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, " "), true
	case "email":
		if id != nil && id.Email != nil {
			return *id.Email, true
		}
	case "address":
		if id == nil {
			return "", false
		}
		parts := nonEmpty(id.Address1, id.Address2, id.Address3)
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, "\n"), true
	case "city":
		if id != nil && id.City != nil {
			return *id.City, true
		}
	case "state":
		if id != nil && id.State != nil {
			return *id.State, true
		}
	case "postcode", "zipcode", "zip":
		if id != nil && id.PostalCode != nil {
			return *id.PostalCode, true
		}
	case "country":
		if id != nil && id.Country != nil {
			return *id.Country, true
		}
	case "phone":
		if id != nil && id.Phone != nil {
			return *id.Phone, true
		}
	case "ssn":
		if id != nil && id.SSN != nil {
			return *id.SSN, true
		}
	case "license":
		if id != nil && id.LicenseNumber != nil {
			return *id.LicenseNumber, true
		}
	case "passport":
		if id != nil && id.PassportNumber != nil {
			return *id.PassportNumber, true
		}
	case "username":
		if id != nil && id.Username != nil {
			return *id.Username, true
		}
	case "notes":
		if c.Notes != nil {
			return *c.Notes, true
		}
	}
	return "", false
}

// JSON pretty-prints c per the wire shape in spec.md §6.
func (r *Router) JSON(c *cipher.DecryptedCipher) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("couldn't marshal entry to json: %w", err)
	}
	_, err = r.Out.Write(append(b, '\n'))
	return err
}
