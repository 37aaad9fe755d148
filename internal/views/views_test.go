package views

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/lojafacil/lojas-backend/pkg/errors"
)

func TestRenderEveryPage(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, name := range []string{PageLogin, PageRegister, PageForgotPassword, PageResetPassword, PageChangePassword, PageProfile} {
		rec := httptest.NewRecorder()
		if err := r.Render(rec, http.StatusOK, name, Page{Title: "T"}); err != nil {
			t.Fatalf("render %s: %v", name, err)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Fatalf("%s: unexpected content type %q", name, ct)
		}
	}
}

func TestRenderShowsValuesAndErrors(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var fe pkgerrors.FieldErrors
	fe.Add("email", "Email ou senha incorretos.")
	fe.Add("senha", "")

	rec := httptest.NewRecorder()
	page := Page{Title: "Login", Values: map[string]string{"email": "a@b.com", "senha": "secret"}}.WithErrors(fe)
	if err := r.Render(rec, http.StatusOK, PageLogin, page); err != nil {
		t.Fatalf("render: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `value="a@b.com"`) {
		t.Fatalf("expected email value echoed, got %s", body)
	}
	if strings.Contains(body, "secret") {
		t.Fatalf("password must never be echoed")
	}
	if !strings.Contains(body, "Email ou senha incorretos.") {
		t.Fatalf("expected error message in body")
	}
	if strings.Count(body, `class="invalid"`) != 2 {
		t.Fatalf("expected both fields flagged invalid")
	}
}

func TestRenderUnknownPage(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Render(httptest.NewRecorder(), http.StatusOK, "missing.html", Page{}); err == nil {
		t.Fatal("expected error for unknown page")
	}
}
