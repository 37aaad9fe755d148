package validators

import (
	"net/http"

	"github.com/go-playground/form/v4"

	pkgerrors "github.com/lojafacil/lojas-backend/pkg/errors"
)

const maxFieldLen = 1024

var decoder = form.NewDecoder()

// DecodeForm parses an urlencoded body into dest, trimming every field except
// those listed in raw (passwords keep their exact bytes). The second return
// value holds the sanitised submission, used to echo values back into forms.
func DecodeForm(r *http.Request, dest any, raw ...string) (map[string]string, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form body")
	}

	keep := make(map[string]struct{}, len(raw))
	for _, name := range raw {
		keep[name] = struct{}{}
	}

	values := make(map[string]string, len(r.PostForm))
	for key, vals := range r.PostForm {
		if len(vals) == 0 {
			continue
		}
		v := vals[0]
		if _, ok := keep[key]; !ok {
			v = SanitizeString(v, maxFieldLen)
		}
		r.PostForm[key] = []string{v}
		values[key] = v
	}

	if err := decoder.Decode(dest, r.PostForm); err != nil {
		return values, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form body")
	}
	return values, nil
}
