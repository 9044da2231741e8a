// Package docs publishes the API documents of downstream services.
//
// Downstream documents are fetched on demand, parsed into an ordered
// tree and re-encoded with two-space indentation. The output is
// structurally identical to the input unless a Transform is configured;
// member order and number literals are preserved.
//
// Rewriting fails closed: malformed input yields ErrMalformedInput and no
// output, so a broken downstream document is never forwarded as is.
//
//	fetcher := docs.NewFetcher(docs.WithFetchTimeout(cfg.Docs.FetchTimeout))
//	svc := docs.NewService(cfg.SwaggerEndPoints, fetcher,
//	    docs.WithRoute(cfg.Docs.PathToSwaggerGenerator))
//
//	body, err := svc.Document(ctx, "orders", "v1")
//	switch {
//	case errors.Is(err, docs.ErrUnknownDocument):
//	    // 404
//	case err != nil:
//	    // 502
//	}
package docs
