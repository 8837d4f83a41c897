package web

import (
	"io"

	"github.com/a-h/templ"
)

func AdminLogin(data AdminLoginData) templ.Component {
	return page("Admin sign in", "", func(w io.Writer) {
		writeAll(w, `      <section class="panel narrow">
        <h1>Sign in</h1>
        <form id="loginForm" class="stack-form">
          <input type="email" name="email" placeholder="Email" autocomplete="username" required/>
          <input type="password" name="password" placeholder="Password" autocomplete="current-password" required/>
          <button type="submit" class="primary">Sign in</button>
        </form>
        <div id="loginResult" class="result">`, esc(data.Error), `</div>
      </section>
      <section class="panel narrow">
        <h2>Have an admin access code?</h2>
        <form id="signupForm" class="stack-form">
          <input name="access_code" placeholder="Access code" autocomplete="off" value="`, esc(data.Code), `" required/>
          <input type="email" name="email" placeholder="Email" autocomplete="username" required/>
          <input name="display_name" placeholder="Display name" maxlength="40"/>
          <input type="password" name="password" placeholder="Password (8+ characters)" minlength="8" autocomplete="new-password" required/>
          <button type="submit" class="secondary">Create account</button>
        </form>
        <div id="signupResult" class="result"></div>
      </section>
`)
	}, `
      const submit = (formId, resultId, path) => {
        const form = document.getElementById(formId);
        form.addEventListener("submit", async (event) => {
          event.preventDefault();
          const body = Object.fromEntries(new FormData(form).entries());
          const res = await api(path, { method: "POST", headers: { "Content-Type": "application/json" }, body: JSON.stringify(body) });
          if (!res.ok) {
            document.getElementById(resultId).textContent = res.data.error || "Request failed.";
            return;
          }
          location.href = "/admin";
        });
      };
      submit("loginForm", "loginResult", "/api/admin/login");
      submit("signupForm", "signupResult", "/api/admin/signup");
`)
}

func AdminDashboard(data AdminData) templ.Component {
	name := data.DisplayName
	if name == "" {
		name = data.Email
	}
	return page("Dashboard", "", func(w io.Writer) {
		writeAll(w, `      <header class="hero compact">
        <span class="tag">`, esc(data.Role), `</span>
        <h1>Dashboard</h1>
        <p>Signed in as `, esc(name), ` · last login `, esc(formatTime(data.LastLoginAt)), `
          <button id="logoutBtn" class="link">Sign out</button></p>
      </header>
      <nav class="tabs" id="tabs">
        <button data-tab="stats" class="active">Overview</button>
        <button data-tab="games">Games</button>
        <button data-tab="questions">Questions</button>
        <button data-tab="costumes">Costumes</button>
        <button data-tab="voting">Voting</button>
        <button data-tab="guestbook">Guestbook</button>
        <button data-tab="props">Props</button>
`)
		if isAdmin(data.Role) {
			writeAll(w, `        <button data-tab="users">Users</button>
        <button data-tab="codes">Access codes</button>
`)
		}
		writeAll(w, `        <button data-tab="events">Activity</button>
      </nav>
      <section class="panel" id="tabBody"></section>
      <div id="adminResult" class="result"></div>
`)
	}, `
      const body = document.getElementById("tabBody");
      const note = (msg) => { document.getElementById("adminResult").textContent = msg || ""; };
      const json = (method, path, payload) => api(path, {
        method,
        headers: { "Content-Type": "application/json" },
        body: payload === undefined ? undefined : JSON.stringify(payload)
      });
      const esc = (v) => String(v === null || v === undefined ? "" : v).replace(/[&<>"]/g, (c) => ({ "&": "&amp;", "<": "&lt;", ">": "&gt;", '"': "&quot;" }[c]));
      const table = (rows, cols, actions) => {
        let html = "<table><thead><tr>" + cols.map((c) => "<th>" + esc(c[1]) + "</th>").join("") + (actions ? "<th></th>" : "") + "</tr></thead><tbody>";
        rows.forEach((r, i) => {
          html += "<tr>" + cols.map((c) => "<td>" + esc(typeof c[0] === "function" ? c[0](r) : r[c[0]]) + "</td>").join("");
          if (actions) html += "<td>" + actions.map((a) => '<button data-act="' + a + '" data-row="' + i + '">' + a + "</button>").join(" ") + "</td>";
          html += "</tr>";
        });
        return html + "</tbody></table>";
      };
      const bindRows = (rows, handlers) => {
        body.querySelectorAll("button[data-act]").forEach((b) => {
          b.addEventListener("click", async () => {
            const res = await handlers[b.dataset.act](rows[Number(b.dataset.row)]);
            if (res && !res.ok) note(res.data.error || "Request failed."); else note("Saved.");
            show(current);
          });
        });
      };
      const formHandler = (id, fn) => {
        const form = document.getElementById(id);
        if (!form) return;
        form.addEventListener("submit", async (event) => {
          event.preventDefault();
          const res = await fn(form);
          if (res && !res.ok) { note(res.data.error || "Request failed."); return; }
          note("Saved.");
          show(current);
        });
      };
      const values = (form) => Object.fromEntries(new FormData(form).entries());

      const tabs = {
        async stats() {
          const res = await api("/api/admin/stats");
          const s = res.data;
          body.innerHTML = "<h2>Overview</h2>" + table([
            ["Games waiting / active / completed", (s.games || {}).waiting + " / " + (s.games || {}).active + " / " + (s.games || {}).completed],
            ["Participants", s.participants], ["Questions", s.questions],
            ["Costumes (pending)", s.costumes_total + " (" + s.costumes_pending + ")"], ["Votes", s.votes],
            ["Guestbook (pending)", s.guestbook_total + " (" + s.guestbook_pending + ")"],
            ["Voting", (s.voting || {}).state], ["Live voting screens", s.live_voting_sockets]
          ], [[0, "Metric"], [1, "Value"]]);
        },
        async games() {
          const res = await api("/api/admin/games");
          const rows = res.data.games || [];
          body.innerHTML = '<h2>Games</h2><form id="gameForm" class="inline-form"><input name="title" placeholder="Title"/><input name="max_participants" type="number" min="1" max="100" placeholder="Seats"/><button class="primary">Create</button></form>' +
            table(rows, [["join_code", "Code"], ["title", "Title"], ["status", "Status"], [(r) => r.participants + "/" + r.max_participants, "Players"]], ["start", "end", "delete"]);
          formHandler("gameForm", (f) => { const v = values(f); return json("POST", "/api/admin/games", { title: v.title, max_participants: Number(v.max_participants) || 0 }); });
          bindRows(rows, {
            start: (r) => json("POST", "/api/admin/games/" + r.id + "/start"),
            end: (r) => json("POST", "/api/admin/games/" + r.id + "/end"),
            delete: (r) => confirm("Delete game " + r.join_code + "?") && json("DELETE", "/api/admin/games/" + r.id)
          });
        },
        async questions() {
          const res = await api("/api/admin/questions?per_page=100");
          const rows = res.data.questions || [];
          body.innerHTML = '<h2>Questions</h2><form id="questionForm" class="stack-form"><input name="level" type="number" min="1" placeholder="Level" required/><input name="text" placeholder="Question" required/><input name="options" placeholder="Options separated by |" required/><input name="correct_index" type="number" min="0" placeholder="Correct option (0-based)" required/><input name="points" type="number" min="0" placeholder="Points"/><input name="category" placeholder="Category"/><button class="primary">Add question</button></form>' +
            '<form id="importForm" class="inline-form"><input type="file" name="file" accept=".csv,text/csv" required/><button class="secondary">Import CSV</button></form>' +
            table(rows, [["level", "Level"], ["text", "Question"], [(r) => (r.options || []).join(" | "), "Options"], ["category", "Category"]], ["delete"]);
          formHandler("questionForm", (f) => {
            const v = values(f);
            return json("POST", "/api/admin/questions", { level: Number(v.level), text: v.text, options: v.options.split("|").map((o) => o.trim()), correct_index: Number(v.correct_index), points: Number(v.points) || 0, category: v.category });
          });
          formHandler("importForm", async (f) => {
            const res = await api("/api/admin/questions/import", { method: "POST", body: new FormData(f) });
            if (res.ok) alert("Imported " + res.data.imported + ", skipped " + (res.data.skipped || []).length);
            return res;
          });
          bindRows(rows, { delete: (r) => json("DELETE", "/api/admin/questions/" + r.id) });
        },
        async costumes() {
          const res = await api("/api/admin/costumes");
          const rows = res.data.costumes || [];
          body.innerHTML = "<h2>Costumes</h2>" + table(rows, [["name", "Costume"], ["wearer_name", "Wearer"], [(r) => r.approved ? "yes" : "pending", "Approved"], ["votes", "Votes"]], ["approve", "hide", "delete"]);
          bindRows(rows, {
            approve: (r) => json("PUT", "/api/admin/costumes/" + r.id, { approved: true }),
            hide: (r) => json("PUT", "/api/admin/costumes/" + r.id, { approved: false }),
            delete: (r) => confirm("Delete " + r.name + "?") && json("DELETE", "/api/admin/costumes/" + r.id)
          });
        },
        async voting() {
          const [status, results] = await Promise.all([api("/api/admin/voting/window"), api("/api/admin/voting/results")]);
          const toLocal = (v) => v ? new Date(v).toISOString().slice(0, 16) : "";
          body.innerHTML = "<h2>Voting</h2><p>State: <strong>" + esc(status.data.state) + "</strong></p>" +
            '<form id="windowForm" class="inline-form"><input type="datetime-local" name="starts_at" value="' + toLocal(status.data.starts_at) + '"/><input type="datetime-local" name="ends_at" value="' + toLocal(status.data.ends_at) + '"/><button class="primary">Save window</button></form>' +
            '<button id="clearWindow" class="secondary">Clear window</button> <button id="resetVotes" class="secondary">Reset votes</button>' +
            table(results.data.results || [], [["rank", "Rank"], ["name", "Costume"], ["wearer_name", "Wearer"], ["votes", "Votes"]]);
          formHandler("windowForm", (f) => {
            const v = values(f);
            const iso = (s) => s ? new Date(s).toISOString() : null;
            return json("PUT", "/api/admin/voting/window", { starts_at: iso(v.starts_at), ends_at: iso(v.ends_at) });
          });
          document.getElementById("clearWindow").addEventListener("click", async () => { await json("DELETE", "/api/admin/voting/window"); show(current); });
          document.getElementById("resetVotes").addEventListener("click", async () => { if (confirm("Delete every vote?")) { await json("DELETE", "/api/admin/voting/votes"); show(current); } });
        },
        async guestbook() {
          const res = await api("/api/admin/guestbook");
          const rows = res.data.messages || [];
          body.innerHTML = "<h2>Guestbook</h2>" + table(rows, [["guest_name", "Guest"], ["message", "Message"], ["video_url", "Video"], [(r) => r.approved ? "yes" : "pending", "Approved"]], ["approve", "hide", "delete"]);
          bindRows(rows, {
            approve: (r) => json("PUT", "/api/admin/guestbook/" + r.id, { approved: true }),
            hide: (r) => json("PUT", "/api/admin/guestbook/" + r.id, { approved: false }),
            delete: (r) => confirm("Delete message from " + r.guest_name + "?") && json("DELETE", "/api/admin/guestbook/" + r.id)
          });
        },
        async props() {
          const res = await api("/api/admin/props");
          const rows = res.data.props || [];
          body.innerHTML = '<h2>Props</h2><form id="propForm" class="inline-form"><input name="name" placeholder="Name" required/><input name="category" placeholder="Category"/><input name="description" placeholder="Description"/><button class="primary">Add prop</button></form>' +
            table(rows, [["name", "Name"], ["category", "Category"], ["display_order", "Order"], [(r) => r.visible ? "yes" : "no", "Visible"]], ["toggle", "delete"]);
          formHandler("propForm", (f) => json("POST", "/api/admin/props", values(f)));
          bindRows(rows, {
            toggle: (r) => json("PUT", "/api/admin/props/" + r.id, { visible: !r.visible }),
            delete: (r) => confirm("Delete " + r.name + "?") && json("DELETE", "/api/admin/props/" + r.id)
          });
        },
        async users() {
          const res = await api("/api/admin/users");
          const rows = res.data.users || [];
          body.innerHTML = '<h2>Users</h2><form id="userForm" class="inline-form"><input type="email" name="email" placeholder="Email" required/><input type="password" name="password" placeholder="Password" minlength="8"/><select name="role"><option>editor</option><option>admin</option></select><button class="primary">Add user</button></form>' +
            table(rows, [["email", "Email"], ["role", "Role"], [(r) => r.active ? "yes" : "no", "Active"], ["last_login_at", "Last login"]], ["promote", "demote", "toggle", "delete"]);
          formHandler("userForm", (f) => json("POST", "/api/admin/users", values(f)));
          bindRows(rows, {
            promote: (r) => json("PUT", "/api/admin/users/" + r.id, { role: "admin" }),
            demote: (r) => json("PUT", "/api/admin/users/" + r.id, { role: "editor" }),
            toggle: (r) => json("PUT", "/api/admin/users/" + r.id, { active: !r.active }),
            delete: (r) => confirm("Delete " + r.email + "?") && json("DELETE", "/api/admin/users/" + r.id)
          });
        },
        async codes() {
          const res = await api("/api/admin/access-codes");
          const rows = res.data.access_codes || [];
          body.innerHTML = '<h2>Access codes</h2><form id="codeForm" class="inline-form"><input name="code" placeholder="Code (blank to generate)"/><input name="label" placeholder="Label"/><select name="purpose"><option>guest</option><option>admin</option></select><input name="max_uses" type="number" min="0" placeholder="Max uses"/><button class="primary">Create</button></form>' +
            table(rows, [["code", "Code"], ["label", "Label"], ["purpose", "Purpose"], [(r) => r.uses + (r.max_uses ? "/" + r.max_uses : ""), "Uses"], [(r) => r.usable ? "yes" : "no", "Usable"]], ["qr", "toggle", "delete"]);
          formHandler("codeForm", (f) => { const v = values(f); v.max_uses = Number(v.max_uses) || 0; return json("POST", "/api/admin/access-codes", v); });
          bindRows(rows, {
            qr: (r) => { window.open("/api/admin/access-codes/" + r.id + "/qr.png", "_blank"); },
            toggle: (r) => json("PUT", "/api/admin/access-codes/" + r.id, { active: !r.active }),
            delete: (r) => confirm("Delete " + r.code + "?") && json("DELETE", "/api/admin/access-codes/" + r.id)
          });
        },
        async events() {
          const res = await api("/api/admin/events");
          body.innerHTML = "<h2>Activity</h2>" + table(res.data.events || [], [["created_at", "When"], ["type", "Event"], ["actor", "Actor"], [(r) => r.subject_type + " " + r.subject_id, "Subject"]]);
        }
      };

      let current = "stats";
      const show = async (tab) => {
        current = tab;
        document.querySelectorAll("#tabs button").forEach((b) => b.classList.toggle("active", b.dataset.tab === tab));
        await tabs[tab]();
      };
      document.querySelectorAll("#tabs button").forEach((b) => b.addEventListener("click", () => { note(""); show(b.dataset.tab); }));
      document.getElementById("logoutBtn").addEventListener("click", async () => {
        await api("/api/admin/logout", { method: "POST" });
        location.href = "/admin/login";
      });
      show(current);
`)
}
