package routes

import (
	"context"
	"path"

	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/attachments"
	"github.com/mbolis/quick-forms/hierarchy"
	"github.com/mbolis/quick-forms/metrics"
	"github.com/mbolis/quick-forms/model"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentUploads = 4

var (
	errBadAttachment        = errors.New("malformed attachment")
	errAttachmentNotAllowed = errors.New("question does not take attachments")
	errAlreadyAnswered      = errors.New("form already answered from this address")
	errInFlight             = errors.New("submission already running from this address")
)

type inFlightCheck struct {
	acquire bool
	key     string
	result  chan<- bool
}

// inFlight serializes submissions per form and client: a second request
// from the same address is refused while the first one is running.
type inFlight chan inFlightCheck

func newInFlight() inFlight {
	checks := make(chan inFlightCheck)
	go func() {
		running := make(map[string]bool)

		for req := range checks {
			if req.acquire {
				req.result <- running[req.key]
				running[req.key] = true
			} else {
				delete(running, req.key)
			}
		}
	}()
	return checks
}

// acquire reports false when key is already running. On true the caller
// must release.
func (f inFlight) acquire(key string) bool {
	done := make(chan bool)
	f <- inFlightCheck{true, key, done}
	return !<-done
}

func (f inFlight) release(key string) {
	f <- inFlightCheck{false, key, nil}
}

// checkAttachments refuses attachments on questions that do not take them,
// unknown question ids included.
func checkAttachments(form model.Form, payloads map[string]string) error {
	allowed := map[string]bool{}
	for _, q := range hierarchy.Questions(hierarchy.Flatten(form.Sections)) {
		allowed[q.ID] = q.AllowAttachments
	}
	for questionID := range payloads {
		if !allowed[questionID] {
			return errors.Wrapf(errAttachmentNotAllowed, "question %q", questionID)
		}
	}
	return nil
}

// responseWriter stores finished responses to one form. Both the one-shot
// submission and the session submit go through it, sharing one guard.
type responseWriter struct {
	app   app.App
	guard inFlight
	form  model.Form
	ip    string
}

// write uploads the attachment payloads, then stores the response with its
// answers in form order. Answers to unknown questions are dropped. Uploads
// are not undone when the insert fails.
func (rw responseWriter) write(ctx context.Context, answers model.Answers, payloads map[string]string) (string, error) {
	err := checkAttachments(rw.form, payloads)
	if err != nil {
		return "", err
	}

	key := rw.form.ID + "|" + rw.ip
	if !rw.guard.acquire(key) {
		return "", errInFlight
	}
	defer rw.guard.release(key)

	if rw.app.Config.OneResponsePerIP {
		found, err := rw.app.HasResponseFrom(ctx, rw.form.ID, rw.ip)
		if err != nil {
			return "", errors.Wrap(err, "check previous responses")
		}
		if found {
			return "", errAlreadyAnswered
		}
	}

	references, err := rw.upload(ctx, payloads)
	if err != nil {
		return "", err
	}

	resp := model.Response{
		FormID:      rw.form.ID,
		IP:          rw.ip,
		Answers:     []model.ResponseAnswer{},
		Attachments: references,
	}
	for _, q := range hierarchy.Questions(hierarchy.Flatten(rw.form.Sections)) {
		if a, ok := answers[q.ID]; ok {
			resp.Answers = append(resp.Answers, model.ResponseAnswer{QuestionID: q.ID, Answer: a})
		}
	}

	err = rw.app.InsertResponse(ctx, &resp)
	if err != nil {
		return "", errors.Wrap(err, "insert response")
	}
	return resp.ID, nil
}

func (rw responseWriter) upload(ctx context.Context, payloads map[string]string) (map[string]string, error) {
	if len(payloads) == 0 {
		return nil, nil
	}

	type upload struct {
		questionID string
		reference  string
	}
	results := make([]upload, 0, len(payloads))
	for questionID := range payloads {
		results = append(results, upload{questionID: questionID})
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentUploads)
	for i := range results {
		u := &results[i]
		g.Go(func() error {
			data, _, err := attachments.Decode(payloads[u.questionID])
			if err != nil {
				return errors.Wrapf(errBadAttachment, "attachment %s: %v", u.questionID, err)
			}
			u.reference, err = rw.app.Attachments.Upload(ctx, data, path.Join("forms", rw.form.ID, u.questionID))
			metrics.AttachmentUpload(len(data), err)
			return errors.Wrapf(err, "attachment %s", u.questionID)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	references := make(map[string]string, len(results))
	for _, u := range results {
		references[u.questionID] = u.reference
	}
	return references, nil
}

// displayAttachments swaps stored references for browser URLs.
func displayAttachments(store attachments.Store, responses []model.Response) {
	for i := range responses {
		for questionID, reference := range responses[i].Attachments {
			responses[i].Attachments[questionID] = store.DisplayURL(reference)
		}
	}
}
