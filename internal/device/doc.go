// Package device provides an HTTP client for the Crosspoint reader's WiFi API.
//
// # API Endpoints
//
//   - GET /status: returns {"ready": bool}; anything other than a 2xx with
//     ready=true is treated as not ready
//   - POST /upload: multipart body with the file under the "file" field and
//     the filename repeated in the X-Filename header; 2xx means accepted
//
// # Client Usage
//
//	client, err := device.NewClient("192.168.4.1")
//	if err != nil {
//		return err
//	}
//	res := client.Probe(ctx)
//	if !res.Connected() {
//		fmt.Println(res.Reason()) // "Timeout", "Device not ready", ...
//	}
//
// Addresses without a scheme are prefixed with http://. Any path, query or
// fragment is dropped so the base URL can be joined with endpoint paths.
//
// # Probe Outcomes
//
// Probe never returns an error. The outcome is one of:
//
//   - ProbeConnected: 2xx and ready=true
//   - ProbeNotReady: non-2xx, malformed body, or ready=false (ErrNotReady)
//   - ProbeTimedOut: the 5s probe deadline elapsed (ErrTimeout)
//   - ProbeFailed: any other transport error (ErrUnreachable)
//
// The probe deadline is enforced with a context, so a device that accepts the
// connection and never answers cannot hang the caller.
package device
