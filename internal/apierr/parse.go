package apierr

import (
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// BodyParser extracts a human message from one known error-body shape.
type BodyParser func(body []byte) (string, bool)

// Parsers are tried in order; the first match wins.
var Parsers = []BodyParser{
	ParseValidationArray,
	ParseMessageField,
	ParseNestedErrors,
	ParsePlainText,
}

// ParseErrorBody runs Parsers over body.
func ParseErrorBody(body []byte) (string, bool) {
	for _, parse := range Parsers {
		if msg, ok := parse(body); ok {
			return msg, true
		}
	}
	return "", false
}

// ParseValidationArray handles *arr style validation failures:
//
//	[{"propertyName":"Path","errorMessage":"Path is already configured"}]
func ParseValidationArray(body []byte) (string, bool) {
	if !gjson.ValidBytes(body) {
		return "", false
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return "", false
	}

	var parts []string
	root.ForEach(func(_, item gjson.Result) bool {
		msg := strings.TrimSpace(item.Get("errorMessage").String())
		if msg == "" {
			return true
		}
		if prop := item.Get("propertyName").String(); prop != "" {
			msg = prop + ": " + msg
		}
		parts = append(parts, msg)
		return true
	})
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "; "), true
}

// messageKeys are the flat message fields seen across the integrated
// services, in preference order.
var messageKeys = []string{"message", "Message", "error", "errorMessage"}

// ParseMessageField handles {"message": "..."} and its variants.
func ParseMessageField(body []byte) (string, bool) {
	if !gjson.ValidBytes(body) {
		return "", false
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return "", false
	}
	for _, key := range messageKeys {
		v := root.Get(gjson.Escape(key))
		if v.Type == gjson.String && strings.TrimSpace(v.String()) != "" {
			return strings.TrimSpace(v.String()), true
		}
	}
	return "", false
}

// ParseNestedErrors handles ASP.NET problem details:
//
//	{"errors": {"Title": ["The Title field is required."]}}
func ParseNestedErrors(body []byte) (string, bool) {
	if !gjson.ValidBytes(body) {
		return "", false
	}
	errs := gjson.GetBytes(body, "errors")
	if !errs.IsObject() {
		return "", false
	}

	var fields []string
	byField := map[string][]string{}
	errs.ForEach(func(field, msgs gjson.Result) bool {
		var list []string
		if msgs.IsArray() {
			for _, m := range msgs.Array() {
				if s := strings.TrimSpace(m.String()); s != "" {
					list = append(list, s)
				}
			}
		} else if s := strings.TrimSpace(msgs.String()); s != "" {
			list = append(list, s)
		}
		if len(list) > 0 {
			fields = append(fields, field.String())
			byField[field.String()] = list
		}
		return true
	})
	if len(fields) == 0 {
		return "", false
	}

	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(byField[f], ", "))
	}
	return strings.Join(parts, "; "), true
}

// ParsePlainText accepts short non-JSON bodies such as qBittorrent's
// "Fails." or a proxy's one-line error. HTML pages are ignored.
func ParsePlainText(body []byte) (string, bool) {
	text := strings.TrimSpace(string(body))
	if text == "" || len(text) > maxPlainTextLength {
		return "", false
	}
	if gjson.Valid(text) || strings.HasPrefix(text, "<") {
		return "", false
	}
	return text, true
}

const maxPlainTextLength = 200
