package transport

import "testing"

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		path    string
		want    string
		wantErr bool
	}{
		{
			name:   "https origin",
			origin: "https://app.fixitquick.example",
			want:   "wss://app.fixitquick.example/ws",
		},
		{
			name:   "http origin",
			origin: "http://localhost:5000",
			want:   "ws://localhost:5000/ws",
		},
		{
			name:   "explicit path",
			origin: "https://app.fixitquick.example",
			path:   "/realtime",
			want:   "wss://app.fixitquick.example/realtime",
		},
		{
			name:   "ws origin passes through",
			origin: "ws://localhost:5000",
			want:   "ws://localhost:5000/ws",
		},
		{
			name:   "origin query and fragment dropped",
			origin: "https://app.fixitquick.example/?tab=orders#top",
			want:   "wss://app.fixitquick.example/ws",
		},
		{
			name:    "empty origin",
			origin:  "",
			wantErr: true,
		},
		{
			name:    "unsupported scheme",
			origin:  "ftp://app.fixitquick.example",
			wantErr: true,
		},
		{
			name:    "no host",
			origin:  "https://",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildURL(tt.origin, tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("BuildURL(%q) expected error, got %q", tt.origin, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildURL(%q) failed: %v", tt.origin, err)
			}
			if got != tt.want {
				t.Errorf("BuildURL(%q) = %q, want %q", tt.origin, got, tt.want)
			}
		})
	}
}
