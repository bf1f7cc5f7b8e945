package debugui

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const pageSize = 25

// handleSessions renders GET /bridge/sessions: a paginated list of every
// persisted session across all owners.
func (d *Dashboard) handleSessions(c *gin.Context) {
	page := pageParam(c)
	offset := (page - 1) * pageSize

	sessions, total, err := d.store.ListAllSessions(pageSize, offset)
	if err != nil {
		c.String(http.StatusInternalServerError, "failed to list sessions: %v", err)
		return
	}

	content := cardStart(fmt.Sprintf("All sessions (%d)", total))
	if len(sessions) == 0 {
		content += emptyMessage("No sessions found.")
	} else {
		content += `<div class="table-responsive"><table class="table table-striped table-hover">
<thead><tr><th>Owner</th><th>Name</th><th>Model</th><th>Messages</th><th></th></tr></thead><tbody>`
		for _, s := range sessions {
			detailURL := fmt.Sprintf("/bridge/sessions/%d/%s", s.OwnerID, template.URLQueryEscaper(s.Name))
			content += fmt.Sprintf(`<tr><td>%d</td><td>%s</td><td>%s</td><td>%d</td><td><a href="%s">view</a></td></tr>`,
				s.OwnerID, template.HTMLEscapeString(s.Name), template.HTMLEscapeString(s.Model), s.MessageCount, detailURL)
		}
		content += `</tbody></table></div>`
		totalPages := (total + pageSize - 1) / pageSize
		content += paginationLinks("/bridge/sessions", page, totalPages)
	}
	content += cardEnd()

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, header("Bridge Sessions")+content+footer())
}

// handleSessionDetail renders GET /bridge/sessions/:owner/:name: a single
// session's full message list plus its estimated context length.
func (d *Dashboard) handleSessionDetail(c *gin.Context) {
	ownerID, err := strconv.ParseInt(c.Param("owner"), 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, "invalid owner id")
		return
	}
	name := c.Param("name")

	detail, found, err := d.store.LoadSession(ownerID, name)
	if err != nil {
		c.String(http.StatusInternalServerError, "failed to load session: %v", err)
		return
	}
	if !found {
		c.String(http.StatusNotFound, "session not found")
		return
	}

	content := cardStart(fmt.Sprintf("%s (owner %d)", detail.Name, detail.OwnerID))
	content += fmt.Sprintf(`<p><strong>Model:</strong> %s &nbsp; <strong>Messages:</strong> %d &nbsp; <strong>Estimated length:</strong> %d</p>`,
		template.HTMLEscapeString(detail.Model), detail.MessageCount, detail.EstimatedSize)
	if detail.SystemPrompt != "" {
		content += fmt.Sprintf(`<p><strong>System prompt:</strong> %s</p>`, template.HTMLEscapeString(detail.SystemPrompt))
	}

	if len(detail.Messages) == 0 {
		content += emptyMessage("No messages yet.")
	} else {
		content += `<div class="table-responsive"><table class="table table-sm">
<thead><tr><th>Time</th><th>Sender</th><th>Role</th><th>Content</th></tr></thead><tbody>`
		for _, m := range detail.Messages {
			content += fmt.Sprintf(`<tr><td class="text-nowrap">%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				m.Timestamp, template.HTMLEscapeString(m.SenderNickname), template.HTMLEscapeString(m.Role), template.HTMLEscapeString(m.Content))
		}
		content += `</tbody></table></div>`
	}
	content += cardEnd()

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, header("Session "+detail.Name)+content+footer())
}

// handleHealth renders GET /bridge/health: a liveness probe with no store
// dependency beyond confirming the process is up.
func (d *Dashboard) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
