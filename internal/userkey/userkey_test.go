package userkey

import "testing"

func TestEncode(t *testing.T) {
	cases := map[string]string{
		"a.b@c.com":             "a,b_at_c,com",
		"player@example.com.br": "player_at_example,com,br",
		"no-dots@host":          "no-dots_at_host",
	}
	for email, want := range cases {
		if got := Encode(email); got != want {
			t.Fatalf("Encode(%q) = %q, want %q", email, got, want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	emails := []string{
		"a.b@c.com",
		"first.middle.last@sub.domain.org",
		"x@y.z",
		"UPPER.Case@Example.COM",
		"plus+tag@mail.example.net",
	}
	for _, email := range emails {
		if got := Decode(Encode(email)); got != email {
			t.Fatalf("round trip of %q produced %q", email, got)
		}
	}
}
