// Package wirehttp reads and writes HTTP/1.x messages over raw byte
// streams.
//
// Bodies are decoded lazily: a parsed message's Body is a stream that
// removes the transfer framing (identity, chunked, gzip) and then the
// content encoding (identity, gzip) while it is read. Writing copies a
// message's Body verbatim.
//
// A Connection wraps one stream and runs a read loop that hands every
// message to a HandlerFunc while the peer asks for keep-alive. A Listener
// accepts connections one Process call at a time:
//
//	ln, err := wirehttp.Listen(":8080", wirehttp.WithHandler(wirehttp.Dispatch(
//	    func(req *wirehttp.Request) {
//	        resp := wirehttp.NewResponse("200 OK")
//	        resp.Header().Set("content-length", "2")
//	        resp.SetBodyString("hi")
//	        req.Connection().WriteMessage(resp)
//	    }, nil)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(ln.RunBlocking(context.Background()))
package wirehttp
