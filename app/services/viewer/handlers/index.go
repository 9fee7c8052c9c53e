package handlers

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"strings"

	"github.com/ardanlabs/votechain/foundation/web"
)

type index struct {
	page []byte
}

// newIndex renders the index page once with the location of the node.
func newIndex(build string, nodeURL string) (index, error) {
	tmpl, err := template.ParseFS(assets, "assets/views/index.html")
	if err != nil {
		return index{}, err
	}

	nodeURL = strings.TrimSuffix(nodeURL, "/")

	data := struct {
		Build   string
		NodeURL string
		WSURL   string
	}{
		Build:   build,
		NodeURL: nodeURL,
		WSURL:   "ws" + strings.TrimPrefix(nodeURL, "http"),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return index{}, err
	}

	return index{page: buf.Bytes()}, nil
}

func (ig index) handler(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := web.SetStatusCode(ctx, http.StatusOK); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(ig.page)

	return err
}
