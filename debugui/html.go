package debugui

import (
	"fmt"
	"html/template"
)

// header renders the page shell: a Bootstrap CDN page with an inline style
// block and the one nav bar this package needs.
func header(title string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <link href="https://cdn.jsdelivr.net/npm/bootstrap@5.3.2/dist/css/bootstrap.min.css" rel="stylesheet">
    <style>
        body { background: #f5f6fa; }
        .navbar-brand { font-weight: 600; }
        .card { border: none; box-shadow: 0 1px 3px rgba(0,0,0,0.08); }
        .table td, .table th { vertical-align: middle; }
    </style>
</head>
<body>
<nav class="navbar navbar-dark" style="background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%);">
    <div class="container-fluid">
        <a class="navbar-brand" href="/bridge/sessions"><i class="bi"></i>LLM Bridge — Sessions</a>
        <div>
            <a class="text-white text-decoration-none me-3" href="/bridge/sessions">Sessions</a>
            <a class="text-white text-decoration-none me-3" href="/bridge/chart">Chart</a>
            <a class="text-white text-decoration-none" href="/bridge/health">Health</a>
        </div>
    </div>
</nav>
<div class="container py-4">`, template.HTMLEscapeString(title))
}

func footer() string {
	return `</div>
</body>
</html>`
}

func cardStart(title string) string {
	return fmt.Sprintf(`<div class="card mb-4"><div class="card-header"><h5 class="mb-0">%s</h5></div><div class="card-body">`, template.HTMLEscapeString(title))
}

func cardEnd() string {
	return `</div></div>`
}

func emptyMessage(text string) string {
	return fmt.Sprintf(`<div class="alert alert-info">%s</div>`, template.HTMLEscapeString(text))
}

// paginationLinks renders a minimal prev/next pager over SessionSummary
// rows.
func paginationLinks(baseURL string, page, totalPages int) string {
	if totalPages <= 1 {
		return ""
	}
	html := `<nav class="mt-3"><ul class="pagination">`
	if page > 1 {
		html += fmt.Sprintf(`<li class="page-item"><a class="page-link" href="%s?page=%d">&laquo; Prev</a></li>`, baseURL, page-1)
	} else {
		html += `<li class="page-item disabled"><span class="page-link">&laquo; Prev</span></li>`
	}
	html += fmt.Sprintf(`<li class="page-item disabled"><span class="page-link">Page %d of %d</span></li>`, page, totalPages)
	if page < totalPages {
		html += fmt.Sprintf(`<li class="page-item"><a class="page-link" href="%s?page=%d">Next &raquo;</a></li>`, baseURL, page+1)
	} else {
		html += `<li class="page-item disabled"><span class="page-link">Next &raquo;</span></li>`
	}
	html += `</ul></nav>`
	return html
}
