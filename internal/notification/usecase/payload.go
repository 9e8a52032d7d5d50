package usecase

import (
	"strings"

	"fled-backend/internal/notification/domain"
	schooldomain "fled-backend/internal/school/domain"
)

const (
	titleLimit        = 100
	taskBodyLimit     = 200
	messageBodyLimit  = 150
	documentBodyLimit = 200
	notesLimit        = 100

	clickAction = "FLUTTER_NOTIFICATION_CLICK"
)

// TaskPayload builds the notification for a newly posted task
func TaskPayload(taskID string, task *schooldomain.Task) domain.Payload {
	kind := strings.TrimSpace(task.Type)
	if kind == "" {
		kind = "Task"
	}

	title := strings.TrimSpace(task.Title)
	deadline := strings.TrimSpace(task.Deadline)
	var body string
	switch {
	case title != "" && deadline != "":
		body = title + " · Due " + deadline
	case title != "":
		body = title
	default:
		body = "A new task has been posted."
	}

	return domain.Payload{
		Title: truncate("New "+kind, titleLimit),
		Body:  truncate(body, taskBodyLimit),
		Data: map[string]string{
			"type":      domain.EventTypeTask,
			"taskId":    taskID,
			"sectionId": task.SectionID,
		},
	}
}

// MessagePayload builds the notification for a teacher message
func MessagePayload(messageID string, msg *schooldomain.Message) domain.Payload {
	title := "New message from teacher"
	if msg.SectionID != "" {
		title = "New announcement"
	}

	return domain.Payload{
		Title: title,
		Body:  truncate(msg.Content, messageBodyLimit),
		Data: map[string]string{
			"type":       domain.EventTypeMessage,
			"messageId":  messageID,
			"sectionId":  msg.SectionID,
			"toParentId": msg.ToParentID,
		},
	}
}

// DocumentPayload builds the notification for an on-demand /notify request
func DocumentPayload(doc *schooldomain.Document) domain.Payload {
	var title, body string
	switch doc.Collection {
	case schooldomain.CollectionMessages:
		title = truncate(strings.TrimSpace(doc.String("title")), titleLimit)
		if title == "" {
			title = "New Message from Teacher"
		}
		body = truncate(doc.String("content"), documentBodyLimit)
	default:
		title = "Attendance Update"
		status := doc.String("status")
		if status == "" {
			status = "Updated"
		}
		status = truncate(status, titleLimit)
		body = "Attendance marked: " + status
		if notes := doc.String("notes"); notes != "" {
			body += " - " + truncate(notes, notesLimit)
		}
	}

	return domain.Payload{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":         doc.Collection,
			"docId":        doc.ID,
			"click_action": clickAction,
		},
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
