package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"fishmarket/internal/config"
	"fishmarket/internal/database"
	"fishmarket/internal/guestcart"
	"fishmarket/internal/handlers"
	"fishmarket/internal/middleware"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("user index warning: %v", err)
	}
	if err := database.EnsureProductIndexes(db); err != nil {
		log.Printf("product index warning: %v", err)
	}
	if err := database.EnsureCartIndexes(db); err != nil {
		log.Printf("cart index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("order index warning: %v", err)
	}

	var guestCarts guestcart.Store
	if config.AppEnv.RedisAddr != "" {
		guestCarts = guestcart.NewRedisStore(redis.NewClient(&redis.Options{Addr: config.AppEnv.RedisAddr}))
		log.Println("guest carts backed by redis:", config.AppEnv.RedisAddr)
	} else {
		memStore := guestcart.NewMemoryStore()
		memStore.StartSweeper(time.Hour)
		defer memStore.Stop()
		guestCarts = memStore
	}

	r := gin.Default()
	registerRoutes(r, db, guestCarts)

	r.Run(":" + config.AppEnv.Port)
}

func registerRoutes(r *gin.Engine, db *mongo.Database, guestCarts guestcart.Store) {
	r.POST("/auth/register", handlers.Register(db, config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL))
	r.POST("/auth/login", handlers.Login(db, config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL))
	r.GET("/auth/me", middleware.UserAuth(config.AppEnv.JWTSecret), handlers.GetMe(db))

	r.GET("/products", handlers.GetProducts(db))
	r.GET("/products/:id", handlers.GetProduct(db))

	guest := r.Group("/guest")
	{
		guest.POST("/cart/add", handlers.AddGuestCartItem(db, guestCarts, config.AppEnv.GuestCartTTL))
		guest.GET("/cart", handlers.GetGuestCart(guestCarts))
		guest.DELETE("/cart/clear", handlers.ClearGuestCart(guestCarts))
	}

	cart := r.Group("/cart")
	cart.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		cart.POST("/add", handlers.AddCartItem(db))
		cart.GET("", handlers.GetCart(db))
		cart.GET("/count", handlers.CartItemCount(db))
		cart.PUT("/update/:itemId", handlers.UpdateCartItem(db))
		cart.DELETE("/remove/:itemId", handlers.RemoveCartItem(db))
		cart.DELETE("/clear", handlers.ClearCart(db))
	}

	orders := r.Group("/orders")
	orders.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		orders.POST("/create", handlers.CreateOrder(db))
		orders.GET("", handlers.GetOrders(db))
		orders.GET("/:orderId", handlers.GetOrder(db))
		orders.PUT("/:orderId/cancel", handlers.CancelOrder(db))
	}

	admin := r.Group("/admin")
	admin.Use(middleware.AdminAuth(config.AppEnv.JWTSecret))
	{
		admin.GET("/products", handlers.GetAllProducts(db))
		admin.POST("/products", handlers.CreateProduct(db))
		admin.PUT("/products/:id", handlers.UpdateProduct(db))
		admin.DELETE("/products/:id", handlers.DeleteProduct(db))

		admin.GET("/orders", handlers.GetAllOrders(db))
		admin.GET("/stats", handlers.GetOrderStats(db))
		admin.PUT("/orders/:orderId/status", handlers.UpdateOrderStatus(db))
	}
}
