package handlers

import (
	"session-stats-service/services"

	"github.com/gofiber/fiber/v2"
)

func SetupGameRoutes(app *fiber.App, gameService *services.GameService) {
	// Reference data for the admin form: games, stat definitions, roster
	app.Get("/games", gameService.GetAllGames)
	app.Get("/games/:id/stats", gameService.GetGameStats)
	app.Get("/players", gameService.GetAllPlayers)
}
