package web

import (
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/portal-chat/internal/chat"
	"github.com/gosuda/portal-chat/internal/render"
)

// Transcript is the session's rendered view.
type Transcript interface {
	Entries() []render.Entry
	IdentityName() string
}

// History reads the persisted messages.
type History interface {
	LoadAll() ([]chat.Message, error)
}

// NewHandler builds a read-only router exposing the session transcript and
// the cached history.
func NewHandler(name string, t Transcript, h History) http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) { serveTranscript(w, name, t) })
	r.Get("/history", func(w http.ResponseWriter, r *http.Request) { serveHistory(w, h) })
	r.Get("/identity", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"username": t.IdentityName()})
	})
	return r
}

func serveTranscript(w http.ResponseWriter, name string, t Transcript) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		Name     string
		Identity string
		Entries  []render.Entry
	}{Name: name, Entries: t.Entries()}
	if id := t.IdentityName(); id != "" {
		data.Identity = chat.IdentityLabel(id)
	}
	if err := transcriptTmpl.Execute(w, data); err != nil {
		log.Debug().Err(err).Msg("[web] render transcript")
	}
}

func serveHistory(w http.ResponseWriter, h History) {
	msgs, err := h.LoadAll()
	if err != nil {
		log.Warn().Err(err).Msg("[web] load history")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// writeJSON leaves <, > and & unescaped so message text reads as typed.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

var transcriptTmpl = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Chat — {{.Name}}</title>
  <style>
    body { margin:0; padding:24px; background:#0d1117; color:#e5e7eb; font-family: ui-sans-serif, system-ui, sans-serif }
    #chat-messages { max-width: 720px; margin: 0 auto }
    .message { display:flex; gap:8px; margin:8px 0 }
    .message.sent { flex-direction: row-reverse }
    .message img { width:32px; height:32px; border-radius:50% }
    .message-username { font-weight:700; font-size:12px; color:#9ca3af }
    .system-message { text-align:center; color:#9ca3af; font-style:italic; margin:8px 0 }
  </style>
</head>
<body>
  <p id="current-username">{{.Identity}}</p>
  <div id="chat-messages">
  {{- range .Entries}}
    {{- if eq .Message.Kind "user"}}
    <div class="message{{if .Mine}} sent{{end}}">
      <img src="{{.Message.AvatarRef}}" alt="" />
      <div class="message-content">
        <div class="message-username">{{.Message.Author}}</div>
        <div>{{.Message.Content}}</div>
      </div>
    </div>
    {{- else}}
    <div class="system-message">{{.Message.Content}}</div>
    {{- end}}
  {{- end}}
  </div>
  <script>window.scrollTo(0, document.body.scrollHeight);</script>
</body>
</html>
`))
