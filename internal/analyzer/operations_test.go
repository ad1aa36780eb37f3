package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ludo-technologies/rux/internal/parser"
)

func TestMemberCandidates(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"console.log", []string{"io.console.log"}},
		{"localStorage.getItem", []string{"io.storage.localStorage.getItem"}},
		{"window.localStorage.getItem", []string{"io.dom.window.localStorage.getItem", "io.storage.localStorage.getItem"}},
		{"window.fetch", []string{"io.dom.window.fetch", "io.network.fetch"}},
		{"document.querySelector", []string{"io.dom.document.querySelector"}},
		{"axios.get", []string{"io.network.axios.get"}},
		{"state.count", nil},
		{"console", nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, memberCandidates(tt.path))
		})
	}
}

func TestNodeOperations(t *testing.T) {
	src := `alert("a");
new XMLHttpRequest();
obj.items.push(1);
this.total += 2;
counter++;
`
	ast, err := parser.ParseForLanguage("ops.js", []byte(src))
	assert.NoError(t, err)

	var found []string
	ast.Walk(func(n *parser.Node) bool {
		op, ok, descend := nodeOperation(n)
		if ok {
			found = append(found, op.Candidates[0]+"@"+op.Subject)
		}
		return descend
	})

	assert.Equal(t, []string{
		"io.dom.alert@alert",
		"io.network.XMLHttpRequest@XMLHttpRequest",
		"pattern.mutations@this.total",
	}, found)
}

func TestLineOperations(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"console call", `  console.log("x");`, []string{"io.console.log"}},
		{"comment stripped", `run(); // console.log("x")`, nil},
		{"comment line", `// fetch("/")`, nil},
		{"url in string", `const u = "http://example.test";`, nil},
		{"storage through window", `window.localStorage.setItem("k", v);`, []string{"io.dom.window.localStorage.setItem"}},
		{"dialog", `if (confirm("ok?")) {}`, []string{"io.dom.confirm"}},
		{"fetch", `await fetch(url);`, []string{"io.network.fetch"}},
		{"method named fetch", `api.fetch(url);`, nil},
		{"constructor", `const s = new WebSocket(url);`, []string{"io.network.WebSocket"}},
		{"axios", `axios.post(url, body);`, []string{"io.network.axios.post"}},
		{"member write", `this.state.open = true;`, []string{"pattern.mutations"}},
		{"comparison is not a write", `if (this.open === true) {}`, nil},
		{"arrow is not a write", `const f = (a) => a.b;`, nil},
		{"prefix update", `++this.count;`, []string{"pattern.mutations"}},
		{"local write", `count = 1;`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, op := range lineOperations(tt.line, 1) {
				got = append(got, op.Candidates[0])
				assert.Equal(t, 1, op.Line)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, CountLines(""))
	assert.Equal(t, 1, CountLines("a"))
	assert.Equal(t, 1, CountLines("a\n"))
	assert.Equal(t, 2, CountLines("a\nb"))
	assert.Equal(t, 3, CountLines("a\n\nb\n"))
}
