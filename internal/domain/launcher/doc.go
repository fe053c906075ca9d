// Package launcher is the command layer over the terminal registry.
//
// It turns a launch request into a terminal.Config (filling command and
// arguments from the tool preset, geometry from defaults, and an id when
// none is given), saves the config so it can be restored after a restart,
// and keeps the saved status in step with the session: running on launch,
// stopped when the session's stream ends or it is stopped explicitly.
//
// Sessions still running when Shutdown is called keep their running status,
// which is what makes them restorable on the next start.
package launcher
