package protocol

// This package implements encoding and decoding of the Source RCON packets
// that palrcon uses to administer game servers.
//
// === Frame layout
//
// All integers are little-endian.
//
//   ```
//     offset  size  field
//     0       4     size        total frame length - 4
//     4       4     id          chosen by the client, echoed by the server
//     8       4     type        3 = AUTH, 2 = COMMAND / AUTH_RESPONSE, 0 = RESPONSE_VALUE
//     12      n     body        ASCII on the wire
//     12+n    2     terminator  0x00 0x00
//   ```
//
// A frame with an empty body is 14 bytes long and its size field is 10.
//
// === Exchanges
//
// Every connection starts with an AUTH packet carrying the admin password:
//
//   ```
//     -> AUTH            id=42 "secret"
//     <- RESPONSE_VALUE  id=42 ""          (some servers)
//     <- AUTH_RESPONSE   id=42 ""          accepted
//     <- AUTH_RESPONSE   id=-1 ""          rejected
//   ```
//
// Once accepted, commands are sent as COMMAND packets and answered with a
// RESPONSE_VALUE packet carrying the same id:
//
//   ```
//     -> COMMAND         id=7  "ShowPlayers"
//     <- RESPONSE_VALUE  id=7  "name,playeruid,steamid\n..."
//   ```
//
// Responses to different commands may interleave, the id is the only thing
// that ties a response to its request.
//
// Bodies are exposed both as ASCII and as UTF-8 since some servers put
// multibyte player names in their replies.
