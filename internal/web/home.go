package web

import (
	"io"

	"github.com/a-h/templ"
)

func Home(data HomeData) templ.Component {
	return page("Welcome", "/", func(w io.Writer) {
		title := data.Title
		if title == "" {
			title = "Hill Valley Halloween"
		}
		writeAll(w, `      <header class="hero">
        <span class="tag">Tonight</span>
        <h1>`, esc(title), `</h1>
        <p>Play trivia, vote for the best costume and leave a message in the video guestbook.</p>
      </header>
`)
		if data.AccessRequired {
			writeAll(w, `      <section class="panel">
        <h2>Access code</h2>
        <p>Enter the code from your invitation to take part.</p>
        <form id="accessForm" class="inline-form">
          <input name="code" placeholder="Access code" autocomplete="off" value="`, esc(data.Code), `" required/>
          <button type="submit" class="primary">Unlock</button>
        </form>
        <div id="accessResult" class="result"></div>
      </section>
`)
		}
		writeAll(w, `      <section class="cards">
        <a class="card" href="/trivia"><h2>Trivia</h2><p>Get matched with other guests and race up the levels.</p></a>
        <a class="card" href="/voting"><h2>Costume contest</h2><p>Voting is <strong>`, esc(data.VotingState), `</strong>.</p></a>
        <a class="card" href="/guestbook"><h2>Video guestbook</h2><p>Record a short hello for the hosts.</p></a>
      </section>
`)
		if len(data.Props) > 0 {
			writeAll(w, `      <section class="panel">
        <h2>Props</h2>
        <ul class="props">
`)
			for _, prop := range data.Props {
				writeAll(w, `          <li class="prop">`)
				if prop.ImageURL != "" {
					writeAll(w, `<img src="`, esc(prop.ImageURL), `" alt="`, esc(prop.Name), `" loading="lazy"/>`)
				}
				writeAll(w, `<h3>`, esc(prop.Name), `</h3>`)
				if prop.Category != "" {
					writeAll(w, `<span class="tag">`, esc(prop.Category), `</span>`)
				}
				writeAll(w, `<p>`, esc(prop.Description), "</p></li>\n")
			}
			writeAll(w, `        </ul>
      </section>
`)
		}
	}, `
      const accessForm = document.getElementById("accessForm");
      if (accessForm) {
        const result = document.getElementById("accessResult");
        const verify = async (code) => {
          result.textContent = "Checking code...";
          const res = await api("/api/access/verify", {
            method: "POST",
            headers: { "Content-Type": "application/json" },
            body: JSON.stringify({ code })
          });
          if (!res.ok) {
            result.textContent = res.data.error || "That code did not work.";
            return;
          }
          localStorage.setItem("hv_access_code", res.data.code);
          result.textContent = "You're in. Enjoy the party!";
        };
        accessForm.addEventListener("submit", (event) => {
          event.preventDefault();
          verify(accessForm.elements.code.value.trim());
        });
        if (accessForm.elements.code.value) {
          verify(accessForm.elements.code.value.trim());
        }
      }
`)
}
