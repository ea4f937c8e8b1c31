package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func Test_consoleCodeProvider(t *testing.T) {
	tc := map[string]struct {
		input    string
		expected string
		wantErr  bool
	}{
		"code with newline":    {input: "123456\n", expected: "123456"},
		"surrounding spaces":   {input: "  987654 \r\n", expected: "987654"},
		"last line without \\n": {input: "555111", expected: "555111"},
		"closed input":         {input: "", wantErr: true},
	}

	for name, test := range tc {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			codes := newConsoleCodeProvider(strings.NewReader(test.input), newReporter(&out))

			code, err := codes.mfaCode()
			if test.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got code %q", code)
				}
				return
			}
			if err != nil {
				t.Fatalf("mfaCode failed. err: %v", err)
			}
			if code != test.expected {
				t.Errorf("code = %q, want %q", code, test.expected)
			}
			if !strings.Contains(out.String(), "Enter MFA code from SMS") {
				t.Errorf("prompt not shown: %q", out.String())
			}
		})
	}
}

func Test_promptPassword(t *testing.T) {
	var out bytes.Buffer
	_, err := promptPassword(strings.NewReader("hunter2\n"), &out)
	if !errors.Is(err, errNoPassword) {
		t.Fatalf("err = %v, want errNoPassword", err)
	}
	if out.Len() != 0 {
		t.Errorf("prompt written for non-terminal input: %q", out.String())
	}
}
