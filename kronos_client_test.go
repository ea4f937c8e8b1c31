package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
)

// loginPage mimics the portal: credentials, then an MFA step, then the
// schedule table loaded after verification.
const loginPage = `<!doctype html>
<html><body>
<div id="login">
  <input id="username"><input id="password" type="password">
  <button id="login-button">Sign in</button>
</div>
<div id="mfa" style="display:none">
  <input id="mfaCode"><button id="verify-mfa-button">Verify</button>
</div>
<div id="schedule"></div>
<script>
document.getElementById('login-button').onclick = function () {
  if (document.getElementById('username').value !== 'jdoe') return;
  if (document.getElementById('password').value !== 'hunter2') return;
  document.getElementById('login').style.display = 'none';
  document.getElementById('mfa').style.display = 'block';
};
document.getElementById('verify-mfa-button').onclick = function () {
  if (document.getElementById('mfaCode').value !== '123456') return;
  document.getElementById('mfa').style.display = 'none';
  fetch('/table').then(function (r) { return r.text(); }).then(function (html) {
    document.getElementById('schedule').innerHTML = html;
  });
};
</script>
</body></html>`

func findChrome(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("no Chrome binary on PATH")
	return ""
}

func Test_kronosPortal(t *testing.T) {
	chromePath := findChrome(t)
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}

	table := readFixture(t, "schedule.html")
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(rw http.ResponseWriter, req *http.Request) {
		fmt.Fprint(rw, loginPage)
	})
	mux.HandleFunc("/table", func(rw http.ResponseWriter, req *http.Request) {
		fmt.Fprint(rw, table)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	a := setupAppForTest(t, &bytes.Buffer{})
	a.cfg.portalURL = ts.URL
	a.cfg.chromePath = chromePath
	a.cfg.headless = true

	p, err := a.openKronos(context.Background())
	if err != nil {
		t.Fatalf("could not launch browser: %v", err)
	}
	defer p.Close()

	if err := p.login(staticCode("123456")); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	rows, err := p.fetchScheduleRows()
	if err != nil {
		t.Fatalf("fetchScheduleRows failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	records := extractShifts(a.logger, rows)
	if len(records) != 1 || records[0].Date != "Mon 01/15/24" {
		t.Errorf("records = %v", records)
	}
}
