package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"DocTrack/internal/conf"

	"go.uber.org/zap"
)

// Notifier 通知派发器：尽力而为，失败不回滚触发它的业务流程
// （审批邮件发不出去不能撤销审批）
type Notifier interface {
	Send(ctx context.Context, recipient, templateName string, data map[string]string) error
}

// 模板名常量
const (
	TplComplianceReminder = "compliance_reminder"
	TplComplianceOverdue  = "compliance_overdue"
	TplDocumentApproved   = "document_approved"
	TplDocumentRejected   = "document_rejected"
	TplEmployeeInvite     = "employee_invite"
)

type renderedMessage struct {
	Subject string
	Body    string
}

// 模板注册表：模板产出 subject + body，占位数据从 data 里取
var templates = map[string]func(data map[string]string) renderedMessage{
	TplComplianceReminder: func(d map[string]string) renderedMessage {
		return renderedMessage{
			Subject: fmt.Sprintf("Compliance Reminder: %s - Due %s", d["compliance_type"], d["due_date"]),
			Body: fmt.Sprintf("Hello %s,\n\nThe compliance task %q for document %q is due on %s.\nPlease make sure it is resolved in time.",
				d["assignee"], d["compliance_type"], d["document_title"], d["due_date"]),
		}
	},
	TplComplianceOverdue: func(d map[string]string) renderedMessage {
		return renderedMessage{
			Subject: fmt.Sprintf("URGENT: Overdue Compliance Task - %s", d["compliance_type"]),
			Body: fmt.Sprintf("Hello %s,\n\nThe compliance task %q for document %q was due on %s and is now OVERDUE.\nPlease resolve it immediately.",
				d["assignee"], d["compliance_type"], d["document_title"], d["due_date"]),
		}
	},
	TplDocumentApproved: func(d map[string]string) renderedMessage {
		return renderedMessage{
			Subject: fmt.Sprintf("Document Approved: %s", d["document_title"]),
			Body: fmt.Sprintf("Hello %s,\n\nYour document %q has been approved by %s.\nComments: %s",
				d["uploader"], d["document_title"], d["reviewer"], d["comments"]),
		}
	},
	TplDocumentRejected: func(d map[string]string) renderedMessage {
		return renderedMessage{
			Subject: fmt.Sprintf("Document Rejected: %s", d["document_title"]),
			Body: fmt.Sprintf("Hello %s,\n\nYour document %q has been rejected by %s.\nComments: %s",
				d["uploader"], d["document_title"], d["reviewer"], d["comments"]),
		}
	},
	TplEmployeeInvite: func(d map[string]string) renderedMessage {
		return renderedMessage{
			Subject: "Welcome to the Compliance Management System",
			Body: fmt.Sprintf("Hello %s,\n\nYou have been invited to the %s department.\nYour temporary password is: %s\nPlease log in and change your password immediately.",
				d["name"], d["department"], d["temp_password"]),
		}
	},
}

// webhookPayload POST 给下游通知服务的结构
type webhookPayload struct {
	Recipient string            `json:"recipient"`
	Template  string            `json:"template"`
	Subject   string            `json:"subject"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp string            `json:"timestamp"`
}

type notifier struct {
	cfg    *conf.NotifyConfig
	client *http.Client
	logger *zap.Logger
}

func NewNotifier(cfg *conf.NotifyConfig, logger *zap.Logger) Notifier {
	return &notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.With(zap.String("service", "notify")),
	}
}

func (n *notifier) Send(ctx context.Context, recipient, templateName string, data map[string]string) error {
	tpl, ok := templates[templateName]
	if !ok {
		return fmt.Errorf("notification template %q not found", templateName)
	}
	msg := tpl(data)

	// 两条通道都没配：只记日志，当作派发成功（开发环境常态）
	if n.cfg.WebhookURL == "" && n.cfg.SMTPAddr == "" {
		n.logger.Info("notification skipped (no channel configured)",
			zap.String("template", templateName),
			zap.String("recipient", recipient))
		return nil
	}

	var lastErr error
	if n.cfg.WebhookURL != "" {
		if err := n.sendWebhook(ctx, recipient, templateName, msg, data); err != nil {
			n.logger.Warn("webhook dispatch failed", zap.Error(err))
			lastErr = err
		} else {
			lastErr = nil
		}
	}
	if n.cfg.SMTPAddr != "" {
		if err := n.sendMail(recipient, msg); err != nil {
			n.logger.Warn("smtp dispatch failed", zap.Error(err))
			if lastErr == nil && n.cfg.WebhookURL == "" {
				lastErr = err
			}
		} else {
			lastErr = nil
		}
	}
	return lastErr
}

func (n *notifier) sendWebhook(ctx context.Context, recipient, templateName string, msg renderedMessage, data map[string]string) error {
	payload := webhookPayload{
		Recipient: recipient,
		Template:  templateName,
		Subject:   msg.Subject,
		Body:      msg.Body,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (n *notifier) sendMail(recipient string, msg renderedMessage) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.cfg.SMTPFrom)
	fmt.Fprintf(&b, "To: %s\r\n", recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n\r\n", msg.Subject)
	b.WriteString(msg.Body)

	return smtp.SendMail(n.cfg.SMTPAddr, nil, n.cfg.SMTPFrom, []string{recipient}, []byte(b.String()))
}
