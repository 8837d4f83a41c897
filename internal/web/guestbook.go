package web

import (
	"io"

	"github.com/a-h/templ"
)

func Guestbook(data GuestbookData) templ.Component {
	return page("Guestbook", "/guestbook", func(w io.Writer) {
		writeAll(w, `      <header class="hero">
        <span class="tag">Guestbook</span>
        <h1>Leave a video message</h1>
        <p>Record a short clip for the hosts. Messages show up here once approved.</p>
      </header>
`, accessNotice(data.AccessRequired), `      <section class="panel">
        <form id="guestbookForm" class="stack-form">
          <input name="guest_name" placeholder="Your name" maxlength="40" required/>
          <textarea name="message" placeholder="A few words (optional)" maxlength="280"></textarea>
          <label>Video (up to `, i64toa(data.MaxVideoMB), ` MB) <input type="file" name="video" accept="video/*" capture="user" required/></label>
          <button type="submit" class="primary">Send message</button>
        </form>
        <div id="guestbookResult" class="result"></div>
      </section>
      <section class="panel">
        <h2>Messages</h2>
        <ul id="messages" class="messages"></ul>
        <button id="moreBtn" class="secondary hidden">Load more</button>
      </section>
`)
	}, `
      const $ = (id) => document.getElementById(id);
      let nextURL = "/api/guestbook";

      const loadMessages = async (reset) => {
        if (reset) {
          nextURL = "/api/guestbook";
          $("messages").innerHTML = "";
        }
        const res = await api(nextURL);
        (res.data.messages || []).forEach((m) => {
          const li = document.createElement("li");
          const video = document.createElement("video");
          video.src = m.video_url;
          video.controls = true;
          video.preload = "metadata";
          const who = document.createElement("h3");
          who.textContent = m.guest_name;
          const text = document.createElement("p");
          text.textContent = m.message;
          li.append(video, who, text);
          $("messages").appendChild(li);
        });
        const pagination = res.data.pagination || {};
        nextURL = pagination.next_url || "";
        $("moreBtn").classList.toggle("hidden", !nextURL);
      };

      $("moreBtn").addEventListener("click", () => loadMessages(false));

      $("guestbookForm").addEventListener("submit", async (event) => {
        event.preventDefault();
        $("guestbookResult").textContent = "Uploading...";
        const res = await api("/api/guestbook", { method: "POST", headers: accessHeaders(), body: new FormData(event.target) });
        if (!res.ok) {
          $("guestbookResult").textContent = res.data.error || "Upload failed.";
          return;
        }
        event.target.reset();
        $("guestbookResult").textContent = res.data.approved ? "Message posted!" : "Thanks! The hosts will review your message.";
        loadMessages(true);
      });

      loadMessages(true);
`)
}
