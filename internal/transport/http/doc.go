// Package http implements the HTTP surface of contactsift: the upload page,
// its JSON twin under /api/v1, one-shot downloads, health and metrics.
//
// Handlers stay thin. They parse and validate the request, call a service
// and format the answer:
//
//	func (h *SiftHandler) SiftAPI(w http.ResponseWriter, r *http.Request) {
//	    result, err := h.sift(r)
//	    if err != nil {
//	        h.errorHandler.HandleError(w, r, err)
//	        return
//	    }
//	    render.JSON(w, r, toSiftResponse(result))
//	}
//
// # Error Handling
//
// JSON endpoints answer RFC 7807 problems through errors.ErrorHandler:
//
//	{
//	    "type": "/errors/upload/malformed",
//	    "title": "Malformed Upload",
//	    "status": 422,
//	    "detail": "failed to open workbook: zip: not a valid zip file",
//	    "instance": "/api/v1/sift"
//	}
//
// The HTML page renders the same problem as an error banner with the same
// status code, so the form stays usable after every failure.
//
// # Downloads
//
// A successful run stores its workbook under a random ID. GET
// /download/{id} serves it once with Content-Disposition: attachment;
// a second request or an expired ID answers 404.
package http
