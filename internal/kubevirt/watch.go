package kubevirt

import (
	"context"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/watch"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kubevirt-actions-runner/internal/phase"
)

// Watch streams events for the named instance until ctx is done.
//
// The stream starts with the current state of the instance (list, then watch
// from the list's resourceVersion). Watches closed by the API server are
// resumed from the last seen resourceVersion; an expired resourceVersion
// triggers a fresh list. Any other failure is delivered as a
// [phase.StreamError] and closes the channel.
//
// Cancelling ctx stops the underlying watch and closes the channel.
func (c *Client) Watch(ctx context.Context, name string) (<-chan phase.Event, error) {
	selector := fields.OneTermEqualSelector("metadata.name", name).String()

	w := &instanceWatch{
		client:   c,
		name:     name,
		selector: selector,
		events:   make(chan phase.Event),
	}

	// The first list and watch run synchronously so setup failures surface
	// as errors instead of stream events.
	if err := w.list(ctx); err != nil {
		return nil, err
	}
	watcher, err := w.watch(ctx)
	if err != nil {
		return nil, err
	}

	go w.run(ctx, watcher)
	return w.events, nil
}

type instanceWatch struct {
	client   *Client
	name     string
	selector string
	events   chan phase.Event

	resourceVersion string
	initial         []phase.Event
	seen            bool
}

// list records the current state of the instance and the resourceVersion to
// watch from.
func (w *instanceWatch) list(ctx context.Context) error {
	list, err := call("list", w.name, func() (*unstructured.UnstructuredList, error) {
		return w.client.instances().List(ctx, metav1.ListOptions{FieldSelector: w.selector})
	})
	if err != nil {
		return err
	}

	w.resourceVersion = list.GetResourceVersion()
	w.initial = w.initial[:0]
	found := false
	for i := range list.Items {
		if list.Items[i].GetName() != w.name {
			continue
		}
		found = true
		w.initial = append(w.initial, phase.Updated{Object: &list.Items[i]})
	}
	if w.seen && !found {
		// Deleted while we were not watching.
		w.initial = append(w.initial, phase.Removed{})
	}
	return nil
}

func (w *instanceWatch) watch(ctx context.Context) (watch.Interface, error) {
	return call("watch", w.name, func() (watch.Interface, error) {
		return w.client.instances().Watch(ctx, metav1.ListOptions{
			FieldSelector:       w.selector,
			ResourceVersion:     w.resourceVersion,
			AllowWatchBookmarks: true,
		})
	})
}

func (w *instanceWatch) send(ctx context.Context, ev phase.Event) bool {
	select {
	case w.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (w *instanceWatch) run(ctx context.Context, watcher watch.Interface) {
	logger := log.FromContext(ctx).WithValues("name", w.name)
	defer close(w.events)
	defer func() { watcher.Stop() }()

	for {
		for _, ev := range w.initial {
			if _, ok := ev.(phase.Updated); ok {
				w.seen = true
			}
			if !w.send(ctx, ev) {
				return
			}
		}
		w.initial = nil

		relist, err := w.consume(ctx, watcher)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			w.send(ctx, phase.StreamError{Err: err})
			return
		}

		watcher.Stop()
		if relist {
			logger.V(1).Info("resourceVersion expired, relisting instance")
			if err := w.list(ctx); err != nil {
				w.send(ctx, phase.StreamError{Err: err})
				return
			}
		} else {
			logger.V(1).Info("watch closed by server, resuming", "resourceVersion", w.resourceVersion)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.client.pollInterval):
		}

		next, err := w.watch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				w.send(ctx, phase.StreamError{Err: err})
			}
			return
		}
		watcher = next
	}
}

// consume forwards events from one watch until it closes. relist is true when
// the watch ended because its resourceVersion expired.
func (w *instanceWatch) consume(ctx context.Context, watcher watch.Interface) (relist bool, err error) {
	for {
		select {
		case <-ctx.Done():
			return false, nil
		case ev, ok := <-watcher.ResultChan():
			if !ok {
				return false, nil
			}

			switch ev.Type {
			case watch.Added, watch.Modified:
				obj, ok := ev.Object.(*unstructured.Unstructured)
				if !ok || obj.GetName() != w.name {
					continue
				}
				w.resourceVersion = obj.GetResourceVersion()
				w.seen = true
				if !w.send(ctx, phase.Updated{Object: obj}) {
					return false, nil
				}

			case watch.Deleted:
				if obj, ok := ev.Object.(*unstructured.Unstructured); ok && obj.GetName() != w.name {
					continue
				}
				if !w.send(ctx, phase.Removed{}) {
					return false, nil
				}

			case watch.Bookmark:
				if obj, ok := ev.Object.(*unstructured.Unstructured); ok {
					w.resourceVersion = obj.GetResourceVersion()
				}

			case watch.Error:
				statusErr := apierrors.FromObject(ev.Object)
				if apierrors.IsResourceExpired(statusErr) || apierrors.IsGone(statusErr) {
					return true, nil
				}
				return false, &APIError{Op: "watch", Name: w.name, Err: statusErr}
			}
		}
	}
}
