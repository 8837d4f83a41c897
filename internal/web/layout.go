package web

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

type navLink struct {
	Href  string
	Label string
}

var siteNav = []navLink{
	{"/", "Home"},
	{"/trivia", "Trivia"},
	{"/voting", "Costumes"},
	{"/guestbook", "Guestbook"},
}

// page wraps body in the shared document shell. script is emitted verbatim
// at the end of the body.
func page(title, active string, body func(w io.Writer), script string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>`)
		b.WriteString(esc(title))
		b.WriteString(` · Hill Valley</title>
    <link rel="stylesheet" href="`)
		b.WriteString(esc(assetPath("/static/styles.css")))
		b.WriteString(`"/>
  </head>
  <body>
    <nav class="site-nav">
      <span class="brand">Hill Valley</span>
`)
		for _, link := range siteNav {
			class := ""
			if link.Href == active {
				class = ` class="active"`
			}
			b.WriteString(`      <a href="` + link.Href + `"` + class + `>` + esc(link.Label) + "</a>\n")
		}
		b.WriteString(`    </nav>
    <main class="shell">
`)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		body(w)
		_, err := io.WriteString(w, `    </main>
    <script>
      const api = async (path, options = {}) => {
        const res = await fetch(path, Object.assign({ credentials: "same-origin" }, options));
        let data = null;
        try { data = await res.json(); } catch (_) {}
        return { ok: res.ok, status: res.status, data: data || {} };
      };
      const accessHeaders = () => {
        const code = localStorage.getItem("hv_access_code");
        return code ? { "X-Access-Code": code } : {};
      };
    </script>
    <script>`+script+`</script>
  </body>
</html>
`)
		return err
	})
}

func writeAll(w io.Writer, parts ...string) {
	for _, part := range parts {
		_, _ = io.WriteString(w, part)
	}
}

func accessNotice(required bool) string {
	if !required {
		return ""
	}
	return `      <p class="notice" id="accessNotice">This event needs an access code. <a href="/">Enter it on the home page.</a></p>
`
}
