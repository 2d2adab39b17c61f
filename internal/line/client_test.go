package line

import (
	"errors"
	"testing"

	"github.com/line/line-bot-sdk-go/v7/linebot"

	"linelogger/internal/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"unauthorized", &linebot.APIError{Code: 401}, domain.ErrAuth},
		{"forbidden", &linebot.APIError{Code: 403}, domain.ErrAuth},
		{"not found", &linebot.APIError{Code: 404}, domain.ErrNotFound},
		{"rate limited", &linebot.APIError{Code: 429}, domain.ErrTransient},
		{"server error", &linebot.APIError{Code: 502}, domain.ErrTransient},
		{"bad request", &linebot.APIError{Code: 400}, domain.ErrPermanent},
		{"network", errors.New("dial tcp: timeout"), domain.ErrTransient},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := classify(c.err)
			if !errors.Is(got, c.want) {
				t.Errorf("classify(%v) = %v, want class %v", c.err, got, c.want)
			}
		})
	}
}

func TestClassifyWrapsCause(t *testing.T) {
	cause := &linebot.APIError{Code: 500}
	got := classify(cause)
	var apiErr *linebot.APIError
	if !errors.As(got, &apiErr) {
		t.Fatalf("classified error does not unwrap to APIError: %v", got)
	}
}
