package model

import "testing"

func TestUser_MaskedName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"regular name", "Minji", "M****"},
		{"two characters", "Bo", "B*"},
		{"single character", "K", "K"},
		{"empty", "", ""},
		{"multibyte runes", "김민지", "김**"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := User{Name: tc.in}
			if got := u.MaskedName(); got != tc.want {
				t.Errorf("MaskedName(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestUser_AgeBucket(t *testing.T) {
	cases := []struct {
		age  int
		want int
	}{
		{27, 20},
		{30, 30},
		{9, 0},
		{65, 60},
		{0, 0},
		{-1, 0},
	}

	for _, tc := range cases {
		u := User{Age: tc.age}
		if got := u.AgeBucket(); got != tc.want {
			t.Errorf("AgeBucket(age=%d) = %d, want %d", tc.age, got, tc.want)
		}
	}
}

func TestFilter_IsZero(t *testing.T) {
	if !(Filter{}).IsZero() {
		t.Error("empty filter should be zero")
	}
	if (Filter{Gender: "F"}).IsZero() {
		t.Error("gender filter should not be zero")
	}
	if (Filter{AgeBucket: 20}).IsZero() {
		t.Error("age filter should not be zero")
	}
}
