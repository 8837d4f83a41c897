package web

import (
	"io"

	"github.com/a-h/templ"
)

func Trivia(data TriviaData) templ.Component {
	return page("Trivia", "/trivia", func(w io.Writer) {
		writeAll(w, `      <header class="hero">
        <span class="tag">Trivia</span>
        <h1>Spooky trivia</h1>
        <p>Pick a name, get matched into a game, then choose your levels.</p>
      </header>
`, accessNotice(data.AccessRequired), `      <section class="panel" id="joinPanel">
        <form id="joinForm" class="join-form">
          <input name="name" placeholder="Your name" autocomplete="nickname" maxlength="40" required/>
          <input name="code" placeholder="Game code (optional)" autocomplete="off" value="`, esc(data.JoinCode), `"/>
          <button type="submit" class="primary">Play</button>
        </form>
        <div id="joinResult" class="result"></div>
      </section>
      <section class="panel hidden" id="levelPanel">
        <h2>Choose levels</h2>
        <form id="levelForm"><div id="levelList" class="checks"></div>
          <button type="submit" class="primary">Start</button>
        </form>
      </section>
      <section class="panel hidden" id="questionPanel">
        <p class="meta" id="progress"></p>
        <h2 id="questionText"></h2>
        <div id="options" class="options"></div>
        <div id="feedback" class="result"></div>
        <button id="nextBtn" class="secondary hidden">Next question</button>
      </section>
      <section class="panel hidden" id="donePanel">
        <h2>All done!</h2>
        <p id="finalScore"></p>
        <button id="resetBtn" class="secondary">Play again</button>
      </section>
      <section class="panel hidden" id="boardPanel">
        <h2>Leaderboard <span class="meta" id="gameCode"></span></h2>
        <ol id="board" class="board"></ol>
      </section>
`)
	}, `
      const $ = (id) => document.getElementById(id);
      const show = (id, on) => $(id).classList.toggle("hidden", !on);
      let state = JSON.parse(localStorage.getItem("hv_trivia") || "null");

      const sessionPath = () => "/api/trivia/games/" + state.gameId + "/participants/" + state.participantId;
      const authed = (extra = {}) => Object.assign({ "X-Participant-Token": state.token }, extra);

      const renderBoard = (entries) => {
        $("board").innerHTML = "";
        entries.forEach((e) => {
          const li = document.createElement("li");
          li.textContent = e.rank + ". " + e.name + " - " + e.score + (e.completed ? " ✓" : "");
          $("board").appendChild(li);
        });
      };

      const renderSession = (session) => {
        show("joinPanel", false);
        show("levelPanel", session.status === "selecting_levels");
        show("questionPanel", session.status === "in_progress");
        show("donePanel", session.status === "completed");
        if (session.status === "selecting_levels") {
          loadLevels();
        }
        if (session.status === "completed") {
          $("finalScore").textContent = "You scored " + session.score + " of " + session.max_score + ".";
        }
        const q = session.current;
        if (session.status !== "in_progress" || !q) return;
        $("progress").textContent = "Level " + q.level + " · question " + (session.index + 1) + " of " + session.total + " · score " + session.score;
        $("questionText").textContent = q.text;
        $("options").innerHTML = "";
        q.options.forEach((opt, i) => {
          const btn = document.createElement("button");
          btn.textContent = opt;
          btn.disabled = q.answered;
          if (q.answered && i === q.correct_index) btn.classList.add("correct");
          if (q.answered && i === q.selected && !q.correct) btn.classList.add("wrong");
          btn.addEventListener("click", () => answer(q.id, i));
          $("options").appendChild(btn);
        });
        $("feedback").textContent = q.answered ? (q.correct ? "Correct!" : "Not quite.") : "";
        show("nextBtn", q.answered);
      };

      const call = async (suffix, method = "POST", body) => {
        const res = await api(sessionPath() + suffix, {
          method,
          headers: authed(body ? { "Content-Type": "application/json" } : {}),
          body: body ? JSON.stringify(body) : undefined
        });
        if (res.status === 401 || res.status === 403 || res.status === 404) {
          localStorage.removeItem("hv_trivia");
          location.reload();
          return;
        }
        if (!res.ok) {
          $("feedback").textContent = res.data.error || "Something went wrong.";
          return;
        }
        renderSession(res.data.session);
      };

      const answer = (questionId, option) => call("/answers", "POST", { question_id: questionId, option });
      $("nextBtn").addEventListener("click", () => call("/next"));
      $("resetBtn").addEventListener("click", () => call("/reset"));

      const loadLevels = async () => {
        const res = await api("/api/trivia/levels");
        $("levelList").innerHTML = "";
        (res.data.levels || []).forEach((l) => {
          const label = document.createElement("label");
          label.innerHTML = '<input type="checkbox" value="' + l.level + '"/> Level ' + l.level + " (" + l.questions + " questions)";
          $("levelList").appendChild(label);
        });
      };

      $("levelForm").addEventListener("submit", (event) => {
        event.preventDefault();
        const levels = Array.from($("levelList").querySelectorAll("input:checked")).map((i) => Number(i.value));
        call("/levels", "POST", { levels });
      });

      const connect = () => {
        show("boardPanel", true);
        const proto = location.protocol === "https:" ? "wss://" : "ws://";
        const ws = new WebSocket(proto + location.host + "/ws/trivia/" + state.gameId);
        ws.onmessage = (msg) => {
          const update = JSON.parse(msg.data);
          $("gameCode").textContent = update.game.join_code + " · " + update.game.status;
          renderBoard(update.leaderboard || []);
        };
        ws.onclose = () => setTimeout(connect, 3000);
      };

      const start = async () => {
        connect();
        await call("/session", "GET");
      };

      $("joinForm").addEventListener("submit", async (event) => {
        event.preventDefault();
        const name = $("joinForm").elements.name.value.trim();
        const code = $("joinForm").elements.code.value.trim();
        const path = code ? "/api/trivia/games/" + encodeURIComponent(code) + "/join" : "/api/trivia/match";
        $("joinResult").textContent = "Finding a game...";
        const res = await api(path, {
          method: "POST",
          headers: Object.assign({ "Content-Type": "application/json" }, accessHeaders()),
          body: JSON.stringify({ name })
        });
        if (!res.ok) {
          $("joinResult").textContent = res.data.error || "Could not join.";
          return;
        }
        state = { gameId: res.data.game.id, participantId: res.data.participant.id, token: res.data.token };
        localStorage.setItem("hv_trivia", JSON.stringify(state));
        start();
      });

      if (state) start();
`)
}
