package livereload

import (
	"bytes"
	"html/template"
)

var scriptTemplate = template.Must(template.New("livereload").Parse(`<script>
(function() {
  var wasConnected = false;
  var reconnecting = false;
  var source = new EventSource({{.}});
  source.onmessage = function(e) {
    if (e.data === "reload") {
      location.reload();
    } else if (e.data === "connected") {
      if (reconnecting) location.reload();
      wasConnected = true;
      reconnecting = false;
    }
  };
  source.onerror = function() {
    if (wasConnected) reconnecting = true;
  };
})();
</script>
`))

// Script returns the client script listening on endpoint. A client that
// reconnects after losing an open connection reloads, since events sent
// during the gap are lost.
func Script(endpoint string) string {
	var buf bytes.Buffer
	if err := scriptTemplate.Execute(&buf, endpoint); err != nil {
		panic(err)
	}
	return buf.String()
}
