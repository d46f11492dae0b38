// Package dspace is a client for the DSpace REST API (the /rest endpoint of DSpace 5
// and 6) covering what content ingestion scripts need: logging in, finding or creating
// communities and collections, creating items, uploading bitstreams and replacing
// item metadata.
//
// The hierarchy is walked from a Repository:
//
//	repo, err := dspace.New("https://repo.example.org/repository")
//	if err != nil { ... }
//	if err := repo.Login(ctx, email, password); err != nil { ... }
//	community, err := repo.FindOrCreateCommunity(ctx, "Corpora")
//	collection, err := community.FindOrCreateCollection(ctx, "Treebanks")
//	item, err := collection.CreateItem(ctx, []dspace.MetadataEntry{
//		dspace.Entry("dc.title", "Prague Dependency Treebank"),
//	})
//	_, err = item.AddBitstream(ctx, "/data/pdt.zip")
//
// # Request Context
//
// Communities, collections and items do not point back at their parents. Each is
// constructed with the ClientContext of the session at that moment: the API URL and
// an immutable copy of the authenticated headers. Per-request header changes, such as
// the multipart Content-Type of an upload, are derived with ClientContext.WithHeader.
//
// # Errors
//
// Every operation issues a single request and never retries. Failures are typed:
// *TransportError when no response arrived, *HTTPStatusError for non-2xx responses,
// *AuthError around either of those for Login, LoginStatus and Logout, and *FileError
// when a bitstream cannot be read. Each also matches its sentinel with errors.Is.
// Lookups by name report a miss through a found flag rather than an error.
//
// # Observability
//
// The package does not log. Pass Hooks through WithHooks to observe requests, created
// resources and failures; LogHooks adapts them to a *slog.Logger.
package dspace
