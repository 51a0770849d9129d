package feedback_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/posthog/posthog-go"
	"go.uber.org/mock/gomock"

	"github.com/furisto/promptbuilder/backend/feedback"
	"github.com/furisto/promptbuilder/backend/mocks"
	"github.com/furisto/promptbuilder/shared"
)

func TestSendRejectsEmptyMessage(t *testing.T) {
	for _, message := range []string{"", "   ", "\n"} {
		ctrl := gomock.NewController(t)
		sink := mocks.NewMockSink(ctrl)
		// no Submit expectation, any call fails the test

		err := feedback.Send(context.Background(), sink, feedback.Submission{Name: "Ada", Message: message})

		var verr *feedback.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("Send(%q) = %v, want ValidationError", message, err)
		}
		if shared.SourceOf(err) != shared.ErrorSourceUser {
			t.Errorf("SourceOf() = %v, want user", shared.SourceOf(err))
		}
	}
}

func TestSendTrimsOptionalFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockSink(ctrl)

	sink.EXPECT().Submit(gomock.Any(), feedback.Submission{Name: "Ada", Email: "ada@example.com", Message: "Love it"}).Return(nil)

	err := feedback.Send(context.Background(), sink, feedback.Submission{Name: " Ada ", Email: "ada@example.com\n", Message: "Love it"})
	if err != nil {
		t.Fatalf("Send() failed: %v", err)
	}
}

func TestFormspreeSink(t *testing.T) {
	var received url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		received, _ = url.ParseQuery(string(body))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink, err := feedback.NewFormspreeSink(server.URL+"/f/test", server.Client())
	if err != nil {
		t.Fatal(err)
	}

	if err := sink.Submit(context.Background(), feedback.Submission{Name: "Ada", Message: "Nice tool"}); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	want := url.Values{"name": {"Ada"}, "email": {""}, "message": {"Nice tool"}}
	if diff := cmp.Diff(want, received); diff != "" {
		t.Errorf("form mismatch (-want +got):\n%s", diff)
	}
}

func TestFormspreeSinkFailures(t *testing.T) {
	for _, status := range []int{http.StatusCreated, http.StatusBadRequest, http.StatusInternalServerError} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		sink, err := feedback.NewFormspreeSink(server.URL, server.Client())
		if err != nil {
			t.Fatal(err)
		}

		err = sink.Submit(context.Background(), feedback.Submission{Message: "hi"})
		var serr *feedback.SinkError
		if !errors.As(err, &serr) {
			t.Errorf("status %d: Submit() = %v, want SinkError", status, err)
		} else if serr.StatusCode != status {
			t.Errorf("SinkError.StatusCode = %d, want %d", serr.StatusCode, status)
		}
		server.Close()
	}
}

func TestFormspreeSinkUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	sink, err := feedback.NewFormspreeSink(endpoint, nil)
	if err != nil {
		t.Fatal(err)
	}

	err = sink.Submit(context.Background(), feedback.Submission{Message: "hi"})
	if shared.SourceOf(err) != shared.ErrorSourceSink {
		t.Errorf("SourceOf() = %v, want sink", shared.SourceOf(err))
	}
}

func TestNewFormspreeSinkRequiresEndpoint(t *testing.T) {
	if _, err := feedback.NewFormspreeSink("", nil); err == nil {
		t.Error("expected error for empty endpoint")
	}
	if _, err := feedback.NewFormspreeSink("not a url", nil); err == nil {
		t.Error("expected error for invalid endpoint")
	}
}

type capturingEnqueuer struct {
	messages []posthog.Message
	err      error
}

func (c *capturingEnqueuer) Enqueue(msg posthog.Message) error {
	c.messages = append(c.messages, msg)
	return c.err
}

func TestPostHogSink(t *testing.T) {
	client := &capturingEnqueuer{}
	sink := feedback.NewPostHogSink(client, "install-1")

	if err := sink.Submit(context.Background(), feedback.Submission{Email: "a@b.c", Message: "hello"}); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	if len(client.messages) != 1 {
		t.Fatalf("enqueued %d messages, want 1", len(client.messages))
	}
	capture := client.messages[0].(posthog.Capture)
	if capture.Event != "feedback_submitted" || capture.DistinctId != "install-1" {
		t.Errorf("unexpected capture %+v", capture)
	}

	client.err = errors.New("closed")
	var serr *feedback.SinkError
	if err := sink.Submit(context.Background(), feedback.Submission{Message: "again"}); !errors.As(err, &serr) {
		t.Errorf("Submit() = %v, want SinkError", err)
	}

	if err := feedback.NewPostHogSink(nil, "x").Submit(context.Background(), feedback.Submission{Message: "m"}); !errors.As(err, &serr) {
		t.Errorf("Submit() without client = %v, want SinkError", err)
	}
}
