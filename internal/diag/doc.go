// Package diag defines the single failure type surfaced by the template
// compilation pipeline.
//
// Every stage reports one of a closed set of causes (one struct per failure
// kind). A cause is wrapped into an *Error at the boundary of the component
// that raised it; the orchestrator may then attach file context, which is
// rendered as a path, a row and column, and a short excerpt of the offending
// source:
//
//	cannot find block `content`
//	  --> templates/page.html:3:1
//	"{% block content %}hello{% endblock %}"
//
// When only the file is known the rendering degrades to the path alone.
package diag
