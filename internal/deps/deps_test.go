package deps

import "testing"

func TestPickNodeVersion(t *testing.T) {
	const fallback = "v20.18.1"

	tests := []struct {
		name   string
		output string
		want   string
	}{
		{
			name:   "plain version list",
			output: "v18.20.4\nv20.18.1\nv22.11.0\n",
			want:   "v22.11.0",
		},
		{
			name:   "nvm ls-remote formatting with LTS labels",
			output: "        v18.20.4   (LTS: Hydrogen)\n        v20.18.1   (Latest LTS: Iron)\n",
			want:   "v20.18.1",
		},
		{
			name:   "arrow-prefixed current version line",
			output: "        v18.20.4   (LTS: Hydrogen)\n->      v20.18.1   (Latest LTS: Iron)\n",
			want:   "v20.18.1",
		},
		{
			name:   "trailing blank lines are skipped",
			output: "v20.18.1\n\n\n",
			want:   "v20.18.1",
		},
		{
			name:   "empty output falls back",
			output: "",
			want:   fallback,
		},
		{
			name:   "garbage output falls back",
			output: "N/A\nerror: remote unavailable\n",
			want:   fallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PickNodeVersion(tt.output, fallback); got != tt.want {
				t.Errorf("PickNodeVersion(%q) = %q, want %q", tt.output, got, tt.want)
			}
		})
	}
}
