package pilot

// Alive reports whether the ship clears every rock. The ship is treated as a
// point against each rock's radius and touching counts as clear.
func Alive(ship Body, rocks []Body) bool {
	for i := range rocks {
		dx := ship.X - rocks[i].X
		dy := ship.Y - rocks[i].Y
		if rocks[i].R*rocks[i].R > dx*dx+dy*dy {
			return false
		}
	}
	return true
}
