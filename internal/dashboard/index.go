package dashboard

import "net/http"

// Minimal index page: connects to /ws and dumps state as it arrives.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>stock screener</title>
</head>
<body>
<h1>stock screener</h1>
<p><button onclick="fetch('/api/scan',{method:'POST'})">Scan now</button>
<a href="/api/chart.png">chart</a></p>
<pre id="state">connecting...</pre>
<script>
const out = document.getElementById('state');
const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
ws.onmessage = (ev) => { out.textContent = JSON.stringify(JSON.parse(ev.data), null, 2); };
ws.onclose = () => { out.textContent += '\n[disconnected]'; };
</script>
</body>
</html>
`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}
