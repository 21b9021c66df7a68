package ecs

type UpdateFrame[S any] struct {
	DeltaTime float64
	Commands  *Commands
	Store     *Store[S]
}

func newUpdateFrame[S any](dt float64, store *Store[S]) *UpdateFrame[S] {
	return &UpdateFrame[S]{
		DeltaTime: dt,
		Commands:  newCommands(),
		Store:     store,
	}
}
