// Package types holds the event contract spoken over the websocket: every
// frame is {"event": name, "data": payload}.
//
// Client -> Server
// getRooms: {}
//
// createRoom:
//
//	password?: string
//
// joinRoom:
//
//	roomId: string
//	password?: string
//
// submitBoard:
//
//	roomId: string
//	board: (number|null)[25] // row-major, 1..25 each once
//
// makeMove:
//
//	roomId: string
//	number: number
//
// leaveRoom:
//
//	roomId: string
//
// Any payload may carry userId; it must match the connection's userId.
//
// Server -> Client
// roomsList / roomsUpdate: { id, playersCount, status, hasPassword }[]
// roomCreated:  { roomId }
// playerJoined: { roomId, players: string[] }
// startFilling: { duration } // seconds
// gameSync:     { status, board, crossedNumbers, turn|null, scores, timer }
// gameStart:    { turn }
// moveMade:     { number, crossedNumbers, turn, scores }
// gameOver:     { winner, reason?: "opponent_left" }
// opponentLeft: no data
// roomClosed:   string
// error:        string
package types
