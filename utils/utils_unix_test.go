//go:build unix

package utils

import (
	"testing"
)

func TestSourceDir(t *testing.T) {
	cases := []struct {
		file string
		want string
	}{
		{
			file: "/Users/name/go/pkg/mod/github.com/automap-go/automap@v1.2.3/utils/utils.go",
			want: "/Users/name/go/pkg/mod/github.com/automap-go/automap@v1.2.3/",
		},
		{
			file: "/go/work/proj/automap/utils/utils.go",
			want: "/go/work/proj/automap/",
		},
	}
	for _, c := range cases {
		s := sourceDir(c.file)
		if s != c.want {
			t.Fatalf("%s: expected %s, got %s", c.file, c.want, s)
		}
	}
}
