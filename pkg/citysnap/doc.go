// Package citysnap is a Go client for the CitySnap building-info gateway.
//
//	client, _ := citysnap.New("http://localhost:8080")
//	res, err := client.BuildingInfo(ctx, citysnap.Query{Address: "Vozdvizhenka 3/5, Moscow"})
//	if errors.Is(err, citysnap.ErrNotFound) {
//	    // no building at that address
//	}
//	fmt.Println(*res.Building.Name, res.Sources)
//
// Photos are sent as raw bytes in Query.Image; the client encodes them.
// Requests that fail with a 5xx status or a transport error are retried
// (twice by default, see WithRetryMax).
package citysnap
