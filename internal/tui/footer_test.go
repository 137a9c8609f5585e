package tui

import (
	"strings"
	"testing"
)

func TestFooterCompact(t *testing.T) {
	t.Parallel()

	km := DefaultKeyMap()
	wide := Footer{Width: 120, Bindings: footerBindings(km)}.View()
	if !strings.Contains(wide, "quit") || !strings.Contains(wide, "year back") {
		t.Errorf("wide footer missing descriptions: %q", wide)
	}
	narrow := Footer{Width: CompactWidth - 1, Bindings: footerBindings(km)}.View()
	if strings.Contains(narrow, "quit") {
		t.Errorf("compact footer should omit descriptions: %q", narrow)
	}
	if !strings.Contains(narrow, "q") {
		t.Errorf("compact footer missing keys: %q", narrow)
	}
}
