package util_test

import (
	"errors"
	"io"
	"math"
	"os"
	"testing"

	"github.com/derickschaefer/spread/internal/util"
)

func TestParseSample(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		ok      bool
		wantErr bool
	}{
		{"7", 7, true, false},
		{" 3.5 ", 3.5, true, false},
		{"-2", -2, true, false},
		{"", 0, false, false},
		{"  ", 0, false, false},
		{".", 0, false, false},
		{"seven", 0, false, true},
		{"1,5", 0, false, true},
	}
	for _, c := range cases {
		got, ok, err := util.ParseSample(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseSample(%q): expected error", c.in)
			}
			continue
		}
		if err != nil || ok != c.ok || got != c.want {
			t.Errorf("ParseSample(%q) = %v, %v, %v; want %v, %v", c.in, got, ok, err, c.want, c.ok)
		}
	}
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{10, "10"},
		{1.25, "1.25"},
		{-3.5, "-3.5"},
		{math.NaN(), "."},
	}
	for _, c := range cases {
		if got := util.FormatValue(c.in); got != c.want {
			t.Errorf("FormatValue(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMultiError(t *testing.T) {
	var m util.MultiError
	if m.Err() != nil {
		t.Fatalf("empty MultiError should yield nil")
	}
	m.Add(nil)
	if m.Err() != nil {
		t.Fatalf("adding nil must not record an error")
	}

	m.Add(io.EOF)
	m.Add(os.ErrNotExist)
	err := m.Err()
	if err == nil {
		t.Fatalf("expected an error")
	}
	if got := err.Error(); got != "EOF; file does not exist" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("errors.Is should see wrapped errors")
	}
	var multi *util.MultiError
	if !errors.As(err, &multi) || len(multi.Errors) != 2 {
		t.Errorf("errors.As should recover the MultiError")
	}
}
