package main

import (
	"time"

	"github.com/ElaineQian09/eggtart-backend/internal/common"
	"github.com/ElaineQian09/eggtart-backend/internal/db"
	"github.com/ElaineQian09/eggtart-backend/internal/gemini"
	"github.com/ElaineQian09/eggtart-backend/internal/logic"
	"github.com/ElaineQian09/eggtart-backend/internal/pipeline"
)

func main() {
	db.InitDB()

	guard := pipeline.NewUserGuard(time.Duration(common.UserCooldownSec * float64(time.Second)))
	pipe := pipeline.New(gemini.NewFromEnv(), guard)

	// background sweep for batches past their max wait
	logic.StartScheduler(pipe)

	router := logic.SetupRouter(pipe)
	router.Run(":8080")
}
