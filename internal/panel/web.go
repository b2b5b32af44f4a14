package panel

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024 * 16,
	WriteBufferSize: 1024 * 16,
	CheckOrigin: func(r *http.Request) bool {
		return true // local-only listener
	},
}

// WebSurface serves one panel into a browser tab: the page renders the
// panel content and relays user actions back over a websocket using the
// wire message format. Connect/disconnect drive the panel's
// visibility transitions.
type WebSurface struct {
	panel    *Panel
	listener net.Listener
	server   *http.Server

	mu      sync.Mutex
	content any
	conn    *websocket.Conn
}

// NewWebSurface starts a localhost server for the panel and returns the
// surface. The page is reachable at URL().
func NewWebSurface(p *Panel) (*WebSurface, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("starting panel server: %w", err)
	}
	ws := &WebSurface{panel: p, listener: ln}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", ws.handlePage)
	mux.HandleFunc("GET /ws", ws.handleWebSocket)
	ws.server = &http.Server{Handler: mux}
	go ws.server.Serve(ln)
	return ws, nil
}

// URL returns the address of the rendered page.
func (ws *WebSurface) URL() string {
	return fmt.Sprintf("http://%s/", ws.listener.Addr().String())
}

// Render stores the content and pushes it to the connected page, if any.
func (ws *WebSurface) Render(content any) {
	ws.mu.Lock()
	ws.content = content
	conn := ws.conn
	ws.mu.Unlock()
	if conn != nil {
		ws.push(conn, "render", content)
	}
}

// Post delivers an outbound message to the page.
func (ws *WebSurface) Post(msg any) bool {
	ws.mu.Lock()
	conn := ws.conn
	ws.mu.Unlock()
	if conn == nil {
		return false
	}
	return ws.push(conn, "message", msg)
}

// Close shuts the server down.
func (ws *WebSurface) Close() {
	ws.server.Close()
}

func (ws *WebSurface) push(conn *websocket.Conn, kind string, payload any) bool {
	raw, err := json.Marshal(map[string]any{"type": kind, "data": payload})
	if err != nil {
		return false
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		log.Printf("panel %s: websocket write: %v", ws.panel.ID, err)
		return false
	}
	return true
}

func (ws *WebSurface) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("panel %s: websocket upgrade: %v", ws.panel.ID, err)
		return
	}

	ws.mu.Lock()
	ws.conn = conn
	content := ws.content
	ws.mu.Unlock()

	ws.panel.SetVisible(true)
	if content != nil {
		ws.push(conn, "render", content)
	}

	defer func() {
		ws.mu.Lock()
		if ws.conn == conn {
			ws.conn = nil
		}
		ws.mu.Unlock()
		ws.panel.SetVisible(false)
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := DecodeMessage(ws.panel.Kind, raw)
		if err != nil {
			ws.push(conn, "error", err.Error())
			continue
		}
		ws.panel.Emit(msg)
	}
}

func (ws *WebSurface) handlePage(w http.ResponseWriter, r *http.Request) {
	ws.mu.Lock()
	content := ws.content
	ws.mu.Unlock()

	initial, err := json.Marshal(content)
	if err != nil {
		initial = []byte("null")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	pageTemplate.Execute(w, map[string]any{
		"Title":   ws.panel.Title,
		"Kind":    string(ws.panel.Kind),
		"Initial": template.JS(initial),
	})
}

var pageTemplate = template.Must(template.New("panel").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 900px; margin: 40px auto; padding: 0 20px; background: #282a36; color: #f8f8f2; }
  h1 { color: #bd93f9; }
  .item { background: #343746; padding: 16px; border-radius: 8px; margin-bottom: 16px; }
  .severity-error { color: #ff5555; font-weight: bold; }
  .severity-warning { color: #f1fa8c; }
  .severity-info { color: #6272a4; }
  pre { background: #21222c; padding: 12px; border-radius: 6px; overflow-x: auto; }
  button { background: #44475a; color: #f8f8f2; border: none; border-radius: 4px; padding: 6px 12px; margin-right: 8px; cursor: pointer; }
  button:hover { background: #6272a4; }
  footer { margin-top: 32px; color: #6272a4; font-size: 0.85em; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div id="content"></div>
<footer>dm &middot; {{.Kind}} panel</footer>
<script>
const kind = "{{.Kind}}";
let content = {{.Initial}};
const sock = new WebSocket("ws://" + location.host + "/ws");
sock.onmessage = (ev) => {
  const msg = JSON.parse(ev.data);
  if (msg.type === "render") { content = msg.data; draw(); }
};
function send(cmd, extra) { sock.send(JSON.stringify(Object.assign({command: cmd}, extra || {}))); }
function draw() {
  const root = document.getElementById("content");
  root.textContent = "";
  if (!content) return;
  const items = content.items || content.comments || [];
  for (const it of items) {
    const div = document.createElement("div");
    div.className = "item";
    const head = document.createElement("div");
    head.className = "severity-" + (it.severity || "info");
    head.textContent = (it.title || it.file + ":" + it.line) + " · " + (it.severity || "info");
    div.appendChild(head);
    const body = document.createElement("p");
    body.textContent = it.description || it.message || "";
    div.appendChild(body);
    const code = it.solution || (it.fix && it.fix.code);
    if (code) {
      const pre = document.createElement("pre");
      pre.textContent = code;
      div.appendChild(pre);
    }
    const apply = document.createElement("button");
    if (kind === "debug") {
      apply.textContent = "Apply solution";
      apply.onclick = () => send("applySolution", {result_id: it.id});
    } else {
      apply.textContent = it.fix ? "Apply fix" : "Go to location";
      apply.onclick = () => it.fix
        ? send("applyFix", {comment_id: it.id})
        : send("gotoLocation", {file: it.file, line: it.line});
    }
    div.appendChild(apply);
    const copy = document.createElement("button");
    copy.textContent = "Copy";
    copy.onclick = () => send("copyToClipboard", {result_id: it.id});
    div.appendChild(copy);
    root.appendChild(div);
  }
}
draw();
</script>
</body>
</html>
`))
