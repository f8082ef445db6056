// Package scheduler runs the daily jobs of the companion bot.
// Once a day at the configured hour it makes sure every couple with a linked
// Telegram chat has today's question and pushes it to that chat.
package scheduler
