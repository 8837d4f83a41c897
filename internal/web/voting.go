package web

import (
	"io"

	"github.com/a-h/templ"
)

func Voting(data VotingData) templ.Component {
	return page("Costume contest", "/voting", func(w io.Writer) {
		writeAll(w, `      <header class="hero">
        <span class="tag">Costume contest</span>
        <h1>Vote for the best costume</h1>
        <p>Voting is <strong id="votingState">`, esc(data.State), `</strong>. <span id="votingTimes" class="meta"></span></p>
      </header>
`, accessNotice(data.AccessRequired), `      <section class="panel">
        <h2>Costumes</h2>
        <div id="voteResult" class="result"></div>
        <ul id="costumes" class="costumes"></ul>
      </section>
      <section class="panel hidden" id="resultsPanel">
        <h2>Results</h2>
        <ol id="results" class="board"></ol>
      </section>
      <section class="panel">
        <h2>Enter your costume</h2>
        <form id="costumeForm" class="stack-form">
          <input name="name" placeholder="Costume name" maxlength="120" required/>
          <input name="wearer_name" placeholder="Your name" maxlength="40" required/>
          <label>Photo (up to `, i64toa(data.MaxPhotoMB), ` MB) <input type="file" name="photo" accept="image/*" capture="environment" required/></label>
          <button type="submit" class="primary">Submit costume</button>
        </form>
        <div id="costumeResult" class="result"></div>
      </section>
`)
	}, `
      const $ = (id) => document.getElementById(id);
      let myVote = null;
      let votingOpen = false;

      const renderCostumes = (costumes) => {
        $("costumes").innerHTML = "";
        costumes.forEach((c) => {
          const li = document.createElement("li");
          li.className = "costume" + (c.id === myVote ? " chosen" : "");
          if (c.photo_url) {
            const img = document.createElement("img");
            img.src = c.photo_url;
            img.alt = c.name;
            img.loading = "lazy";
            li.appendChild(img);
          }
          const title = document.createElement("h3");
          title.textContent = c.name;
          const who = document.createElement("p");
          who.textContent = c.wearer_name + (c.votes !== undefined ? " · " + c.votes + " votes" : "");
          li.append(title, who);
          if (votingOpen) {
            const btn = document.createElement("button");
            btn.textContent = c.id === myVote ? "Your vote" : "Vote";
            btn.disabled = c.id === myVote;
            btn.addEventListener("click", () => vote(c.id, false));
            li.appendChild(btn);
          }
          $("costumes").appendChild(li);
        });
      };

      const load = async () => {
        const [list, mine] = await Promise.all([api("/api/costumes"), api("/api/voting/vote")]);
        myVote = mine.data.costume_id || null;
        const status = list.data.voting || {};
        votingOpen = status.state === "open";
        $("votingState").textContent = status.state || "unknown";
        const times = [];
        if (status.starts_at) times.push("Opens " + new Date(status.starts_at).toLocaleString());
        if (status.ends_at) times.push("Closes " + new Date(status.ends_at).toLocaleString());
        $("votingTimes").textContent = times.join(" · ");
        renderCostumes(list.data.costumes || []);
        if (status.results_ready) {
          const res = await api("/api/voting/results");
          $("results").innerHTML = "";
          (res.data.results || []).forEach((r) => {
            const li = document.createElement("li");
            li.textContent = r.rank + ". " + r.name + " (" + r.wearer_name + ") - " + r.votes + (r.winner ? " 🏆" : "");
            $("results").appendChild(li);
          });
          $("resultsPanel").classList.remove("hidden");
        }
      };

      const vote = async (costumeId, confirmChange) => {
        const res = await api("/api/voting/vote", {
          method: "POST",
          headers: Object.assign({ "Content-Type": "application/json" }, accessHeaders()),
          body: JSON.stringify({ costume_id: costumeId, confirm_change: confirmChange })
        });
        if (res.status === 409 && res.data.current_costume_id) {
          if (confirm("You already voted. Change your vote?")) vote(costumeId, true);
          return;
        }
        $("voteResult").textContent = res.ok ? "Vote saved." : (res.data.error || "Could not vote.");
        load();
      };

      $("costumeForm").addEventListener("submit", async (event) => {
        event.preventDefault();
        $("costumeResult").textContent = "Uploading...";
        const res = await api("/api/costumes", { method: "POST", headers: accessHeaders(), body: new FormData(event.target) });
        if (!res.ok) {
          $("costumeResult").textContent = res.data.error || "Upload failed.";
          return;
        }
        event.target.reset();
        $("costumeResult").textContent = res.data.approved ? "Costume added!" : "Thanks! Your costume will appear once approved.";
        load();
      });

      const connect = () => {
        const proto = location.protocol === "https:" ? "wss://" : "ws://";
        const ws = new WebSocket(proto + location.host + "/ws/voting");
        ws.onmessage = () => load();
        ws.onclose = () => setTimeout(connect, 3000);
      };

      load();
      connect();
`)
}
