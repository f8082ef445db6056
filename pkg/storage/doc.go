// Package storage provides persistent storage for the loversspace app.
// It uses BadgerDB as the embedded database; values are JSON documents and
// multi-record writes (cascade deletes, partner binding) go through a single
// transaction via Store.Update.
//
// Key layout:
//
//	seq:<kind>                          id counters
//	user:<id>  username:<name>          accounts
//	session:<sha256>  invite:<code>     TTL keys
//	tglink:<code>  tgchat:<chat id>     Telegram linking
//	recipe:<id>                         recipes
//	ingredient:<recipe>:<pos>           owned by a recipe
//	seasoning:<recipe>:<pos>            owned by a recipe
//	cooklog:<recipe>:<id>               owned by a recipe
//	journal:<id>  memory:<id>  wish:<id>
//	question:<couple>:<date>            daily questions
//	pantry:<user>                       last pantry input
package storage
